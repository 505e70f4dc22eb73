package ws_room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/humanbelnik/scribble-relay/internal/model"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub is the room-scoped fanout of this relay instance. Emits to one room are
// written to every subscriber's queue under the same lock, so each subscriber
// sees them in emission order.
type Hub struct {
	logger  *slog.Logger
	clients map[*Client]bool
	rooms   map[model.RoomCode]map[*Client]bool
	mu      sync.RWMutex
	done    chan struct{}

	// connections counts registered clients whose teardown has not run yet.
	connections sync.WaitGroup
	stopping    bool
}

type HubOption func(*Hub)

func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:  slog.Default(),
		clients: make(map[*Client]bool),
		rooms:   make(map[model.RoomCode]map[*Client]bool),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.logger.Info("hub shutting down")
	h.closeAllClients()
	close(h.done)
}

func (h *Hub) Wait() {
	<-h.done
}

var ErrStopping = errors.New("hub is shutting down")

// Drain waits until every registered client has been unregistered.
func (h *Hub) Drain(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		h.connections.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) RegisterClient(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopping {
		client.close()
		return ErrStopping
	}
	h.clients[client] = true
	client.tracked = true
	h.connections.Add(1)
	h.logger.Info("client registered", "connection_id", client.id)
	return nil
}

func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.removeFromRoomsLocked(client)
		client.close()
	}
	if client.tracked {
		client.tracked = false
		h.connections.Done()
	}
	h.logger.Info("client unregistered", "connection_id", client.id)
}

// SubscribeHeld subscribes client with its queue on hold. Room events from
// this point on wait for Release.
func (h *Hub) SubscribeHeld(client *Client, roomCode model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.hold()
	h.subscribeLocked(client, roomCode)
}

func (h *Hub) subscribeLocked(client *Client, roomCode model.RoomCode) {
	if _, exists := h.rooms[roomCode]; !exists {
		h.rooms[roomCode] = make(map[*Client]bool)
	}
	h.rooms[roomCode][client] = true
}

// Release sends head to client, followed by the held events skip lets through.
func (h *Hub) Release(client *Client, head Event, skip func(Event) bool) {
	client.release(head, skip)
}

func (h *Hub) Unsubscribe(client *Client, roomCode model.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(client, roomCode)
}

func (h *Hub) unsubscribeLocked(client *Client, roomCode model.RoomCode) {
	if roomClients, exists := h.rooms[roomCode]; exists {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

func (h *Hub) removeFromRoomsLocked(client *Client) {
	for roomCode := range h.rooms {
		h.unsubscribeLocked(client, roomCode)
	}
}

// Emit sends to every connection in the room.
func (h *Hub) Emit(roomCode model.RoomCode, event string, payload any) {
	h.broadcastToRoom(roomCode, nil, Event{Type: event, Payload: payload})
}

// EmitExcept sends to every connection in the room but the given one.
func (h *Hub) EmitExcept(roomCode model.RoomCode, except *Client, event string, payload any) {
	h.broadcastToRoom(roomCode, except, Event{Type: event, Payload: payload})
}

func (h *Hub) SubscriberCount(roomCode model.RoomCode) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func (h *Hub) broadcastToRoom(roomCode model.RoomCode, except *Client, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomCode] {
		if client == except {
			continue
		}
		if !client.enqueue(event) {
			// Slow consumer: drop it rather than stall the room.
			h.logger.Warn("dropping slow client",
				"connection_id", client.id,
				"room", roomCode)
			delete(h.clients, client)
			h.removeFromRoomsLocked(client)
			client.close()
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopping = true
	for client := range h.clients {
		client.close()
		if client.conn != nil {
			_ = client.conn.Close()
		}
		delete(h.clients, client)
	}
	h.rooms = make(map[model.RoomCode]map[*Client]bool)
}
