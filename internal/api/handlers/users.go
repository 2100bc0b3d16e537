package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/api/middleware"
	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserHandler serves account administration.
type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type SetRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR [users.List]: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, newUserResponse(user))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	principal, _ := middleware.PrincipalFrom(r.Context())
	user, err := h.authService.SetRole(r.Context(), principal, userID, req.Role)
	if err != nil {
		log.Printf("ERROR [users.SetRole] userID=%s role=%q: %v", userID, req.Role, err)
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
