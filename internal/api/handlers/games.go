package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.List(r.Context())
	if err != nil {
		log.Printf("ERROR [games.List]: %v", err)
		writeDomainError(w, err)
		return
	}
	if games == nil {
		games = []*domain.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	game, err := h.gameService.Get(r.Context(), id)
	if err != nil {
		log.Printf("ERROR [games.Get] gameID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	events, err := h.gameService.Events(r.Context(), id)
	if err != nil {
		log.Printf("ERROR [games.Events] gameID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *GameHandler) ShotDensity(w http.ResponseWriter, r *http.Request) {
	h.density(w, r, "games.ShotDensity", h.gameService.ShotDensity)
}

func (h *GameHandler) GoalDensity(w http.ResponseWriter, r *http.Request) {
	h.density(w, r, "games.GoalDensity", h.gameService.GoalDensity)
}

type densityFunc func(ctx context.Context, id uint, team string) ([]domain.Coordinate, error)

func (h *GameHandler) density(w http.ResponseWriter, r *http.Request, op string, fn densityFunc) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	coords, err := fn(r.Context(), id, r.URL.Query().Get("team"))
	if err != nil {
		log.Printf("ERROR [%s] gameID=%d: %v", op, id, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

func (h *GameHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	export, err := h.gameService.Export(r.Context(), id)
	if err != nil {
		log.Printf("ERROR [games.Export] gameID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Game.ExportFilename()))
	writeJSON(w, http.StatusOK, export)
}
