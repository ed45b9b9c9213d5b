package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
)

type Hub struct {
	clients    map[*Client]bool
	sessions   map[uuid.UUID]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run dispatches events until ctx is done, then disconnects every client.
// It must be called once per hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// join hands client to Run. It reports false once the hub has shut down.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands client back to Run; after shutdown every client is already dropped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	delete(h.sessions[client.sessionID], client)
	if len(h.sessions[client.sessionID]) == 0 {
		delete(h.sessions, client.sessionID)
	}

	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.dropLocked(client)
	}
}

func (h *Hub) dispatch(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	targets := h.clients
	if event.SessionID != uuid.Nil {
		targets = h.sessions[event.SessionID]
	}

	for client := range targets {
		select {
		case client.send <- message:
		default:
			// slow client
			h.dropLocked(client)
		}
	}
}

func (h *Hub) publish(sessionID uuid.UUID, eventType EventType, data interface{}) {
	event := Event{
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

func (h *Hub) BroadcastToSession(sessionID uuid.UUID, eventType EventType, data interface{}) {
	h.publish(sessionID, eventType, data)
}

// BroadcastAll pushes an event to every connected client
func (h *Hub) BroadcastAll(eventType EventType, data interface{}) {
	h.publish(uuid.Nil, eventType, data)
}

// PublishDetection pushes a detector result to the session's clients
func (h *Hub) PublishDetection(sessionID uuid.UUID, source domain.Source, result emotion.Result) {
	h.publish(sessionID, EventDetectionUpdated, DetectionPayload{Source: source, Result: result})
}

// PublishModelStatus pushes a model state change to everyone
func (h *Hub) PublishModelStatus(status model.Status) {
	h.publish(uuid.Nil, EventModelStatus, status)
}

func (h *Hub) GetConnectedClients(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions[sessionID])
}
