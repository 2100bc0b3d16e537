package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type ChatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Game     domain.GameIdentity  `json:"game"`
}

// Chat always answers 200 with an assistant message; engine failures are
// reported in the message text.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR [chat.Chat] failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := h.chatService.Chat(r.Context(), service.ChatInput{
		Messages: req.Messages,
		Game:     req.Game,
	})
	writeJSON(w, http.StatusOK, result.Message)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseUint(r.URL.Query().Get("game_id"), 10, 64)
	if err != nil || gameID == 0 {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}

	logs, err := h.chatService.History(r.Context(), uint(gameID))
	if err != nil {
		log.Printf("ERROR [chat.History] gameID=%d: %v", gameID, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
