package websocket

import (
	"context"
	"sync"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/service"
	"github.com/sirupsen/logrus"
)

// Asker answers a chat question about one game.
type Asker interface {
	Ask(ctx context.Context, game domain.GameIdentity, question string) service.ChatResult
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	stopOnce   sync.Once
	asker      Asker
	log        logrus.FieldLogger
	mu         sync.RWMutex

	// ctx is cancelled on Stop so in-flight questions give up.
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewHub(asker Asker, log logrus.FieldLogger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		asker:      asker,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			h.mu.Unlock()

			// Let running questions observe the cancelled context and finish
			h.cancel()
			h.inflight.Wait()

			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()
		}
	}
}

// Stop gracefully shuts down the hub. It blocks until in-flight questions
// have returned and every client has been closed.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done // Wait for Run() to finish
}

// Register adds client to the hub. After Stop the client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ask answers in the background so a slow engine does not block the
// client's read loop.
func (h *Hub) ask(client *Client, payload AskPayload) {
	h.mu.RLock()
	if h.stopped {
		h.mu.RUnlock()
		return
	}
	h.inflight.Add(1)
	h.mu.RUnlock()

	go func() {
		defer h.inflight.Done()

		result := h.asker.Ask(h.ctx, payload.Game, payload.Question)
		h.log.WithFields(logrus.Fields{
			"user_id": client.userID,
			"outcome": result.Outcome,
		}).Debug("websocket question answered")

		msg, err := NewMessage(MessageTypeAnswer, AnswerPayload{
			RequestID: payload.RequestID,
			Game:      payload.Game,
			Content:   result.Message.Content,
			Outcome:   result.Outcome,
		})
		if err != nil {
			h.log.WithError(err).Error("failed to build answer message")
			return
		}
		client.Send(msg)
	}()
}
