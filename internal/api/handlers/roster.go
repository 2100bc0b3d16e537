package handlers

import (
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
)

type RosterHandler struct {
	rosterService *service.RosterService
}

func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

func (h *RosterHandler) Teams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.rosterService.Teams(r.Context())
	if err != nil {
		log.Printf("ERROR [roster.Teams]: %v", err)
		writeDomainError(w, err)
		return
	}
	if teams == nil {
		teams = []*domain.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *RosterHandler) Players(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	players, err := h.rosterService.Players(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR [roster.Players]: %v", err)
		writeDomainError(w, err)
		return
	}
	if players == nil {
		players = []*domain.Player{}
	}
	writeJSON(w, http.StatusOK, players)
}
