package handlers

import (
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/querycache"
	"github.com/dom/puckquery/internal/service"
)

type CacheHandler struct {
	cache       *querycache.Cache
	gameService *service.GameService
}

func NewCacheHandler(cache *querycache.Cache, gameService *service.GameService) *CacheHandler {
	return &CacheHandler{
		cache:       cache,
		gameService: gameService,
	}
}

func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *CacheHandler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	n := h.cache.InvalidateAll()
	log.Printf("INFO [cache.InvalidateAll] dropped %d entries", n)
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (h *CacheHandler) InvalidateGame(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	game, err := h.gameService.Get(r.Context(), id)
	if err != nil {
		log.Printf("ERROR [cache.InvalidateGame] gameID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}

	removed := h.cache.Invalidate(game.Identity())
	writeJSON(w, http.StatusOK, map[string]bool{"invalidated": removed})
}
