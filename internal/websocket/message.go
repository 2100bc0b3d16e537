package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/puckquery/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeAsk MessageType = "ASK"

	// Server to Client
	MessageTypeAnswer MessageType = "ANSWER"
	MessageTypeError  MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type AskPayload struct {
	RequestID string              `json:"requestId,omitempty"`
	Game      domain.GameIdentity `json:"game"`
	Question  string              `json:"question"`
}

// Server to Client payloads

type AnswerPayload struct {
	RequestID string              `json:"requestId,omitempty"`
	Game      domain.GameIdentity `json:"game"`
	Content   string              `json:"content"`
	Outcome   domain.QueryOutcome `json:"outcome"`
}

type ErrorPayload struct {
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
