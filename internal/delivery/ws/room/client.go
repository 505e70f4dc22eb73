package ws_room

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/humanbelnik/scribble-relay/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// membership is what the connection knows about the room it is in.
type membership struct {
	roomCode model.RoomCode
	userID   string
	username string
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan Event

	mu     sync.Mutex
	closed bool
	member membership

	// While held is set, room events queue in pending until the joiner has
	// been sent its history.
	held    bool
	pending []Event

	tracked bool
}

func NewClient(conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, buffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) enqueue(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	if c.held {
		c.pending = append(c.pending, event)
		return true
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = true
	c.pending = nil
}

// release queues head first, then every held event that skip does not
// reject. A client that cannot take it all is closed.
func (c *Client) release(head Event, skip func(Event) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending
	c.held = false
	c.pending = nil
	if c.closed {
		return
	}

	queue := make([]Event, 0, len(pending)+1)
	queue = append(queue, head)
	for _, event := range pending {
		if skip == nil || !skip(event) {
			queue = append(queue, event)
		}
	}
	for _, event := range queue {
		select {
		case c.send <- event:
		default:
			c.closed = true
			close(c.send)
			return
		}
	}
}

func (c *Client) emit(event string, payload any) {
	c.enqueue(Event{Type: event, Payload: payload})
}

func (c *Client) membership() membership {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.member
}

func (c *Client) setMembership(m membership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.member = m
}

// clearMembership resets the local state and returns what it was.
func (c *Client) clearMembership() membership {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.member
	c.member = membership{}
	return m
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StartReading feeds every frame to the relay in order and runs the
// disconnect path once the connection goes away.
func (c *Client) StartReading(ctx context.Context, hub *Hub, relay *Relay) {
	reason := "connection closed"
	defer func() {
		// Membership cleanup must finish even when the relay is stopping.
		relay.Disconnect(context.WithoutCancel(ctx), c, reason)
		hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			reason = err.Error()
			return
		}
		relay.Handle(ctx, c, raw)
	}
}

func (c *Client) StartWriting() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
