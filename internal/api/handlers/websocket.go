package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dom/puckquery/internal/api/middleware"
	"github.com/dom/puckquery/internal/service"
	"github.com/dom/puckquery/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades chat connections. Chat is open, so a token is
// optional; when one is given it must be valid.
type WebSocketHandler struct {
	hub      *websocket.Hub
	auth     middleware.Authenticator
	upgrader ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, auth middleware.Authenticator, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigin, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request, hence ?token=.
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}

	userID := uuid.Nil
	if token != "" {
		principal, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			log.Printf("ERROR [websocket.Handle] authenticate: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		userID = principal.UserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR [websocket.Handle] upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
