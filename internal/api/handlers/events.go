package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
)

type EventHandler struct {
	eventService *service.EventService
}

func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		http.Error(w, "Invalid skip", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultEventLimit)
	if err != nil || limit < 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	events, err := h.eventService.List(r.Context(), skip, limit)
	if err != nil {
		log.Printf("ERROR [events.List]: %v", err)
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.eventService.Types(r.Context())
	if err != nil {
		log.Printf("ERROR [events.Types]: %v", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	event, err := h.eventService.Get(r.Context(), id)
	if err != nil {
		log.Printf("ERROR [events.Get] eventID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [events.Create] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.eventService.Create(r.Context(), req)
	if err != nil {
		log.Printf("ERROR [events.Create]: %v", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	var req domain.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [events.Update] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.eventService.Update(r.Context(), id, req)
	if err != nil {
		log.Printf("ERROR [events.Update] eventID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		log.Printf("ERROR [events.Delete] eventID=%d: %v", id, err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
