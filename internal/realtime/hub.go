// Package realtime fans chat events out to websocket clients grouped in rooms.
// A room runs its own loop; clients enter through register and leave through
// unregister, and broadcast messages go to every client in the room.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"mindwellAPI/internal/logger"
)

// ChatRoom is the room that carries events for one chat session.
func ChatRoom(sessionID string) string {
	return "chat_" + sessionID
}

// Envelope is one event addressed to a room. It is also the bus wire format.
type Envelope struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func NewEnvelope(room string, v any) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode realtime event: %w", err)
	}
	return Envelope{Room: room, Payload: b}, nil
}

// Publisher is what services use to emit realtime events.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type Hub struct {
	log   *logger.Logger
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{log: log.With("service", "RealtimeHub"), rooms: make(map[string]*Room)}
}

func (h *Hub) getOrCreate(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r := newRoom(id, h)
	h.rooms[id] = r
	go r.Run()
	return r
}

func (h *Hub) get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) remove(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[r.ID] == r {
		delete(h.rooms, r.ID)
	}
}

// Join puts c into the room, creating the room when needed.
func (h *Hub) Join(roomID string, c *Client) {
	for {
		r := h.getOrCreate(roomID)
		select {
		case r.register <- c:
			return
		case <-r.done:
			// The room emptied out between lookup and register. Try a fresh one.
		}
	}
}

// Leave removes c from its room. It is safe to call more than once.
func (h *Hub) Leave(c *Client) {
	r := c.room()
	if r == nil {
		return
	}
	select {
	case r.unregister <- c:
	case <-r.done:
	}
}

// Deliver sends env to the local clients of its room. Rooms without clients
// on this instance drop the event.
func (h *Hub) Deliver(env Envelope) {
	r, ok := h.get(env.Room)
	if !ok {
		return
	}
	select {
	case r.broadcast <- []byte(env.Payload):
	case <-r.done:
	}
}

// Rooms reports the number of live rooms.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

type Room struct {
	ID      string
	hub     *Hub
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func newRoom(id string, hub *Hub) *Room {
	return &Room{
		ID:         id,
		hub:        hub,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns r.clients. It returns once the last client leaves.
func (r *Room) Run() {
	defer close(r.done)
	for {
		select {
		case c := <-r.register:
			r.clients[c] = true
			c.setRoom(r)
			r.hub.log.Debug("client joined", "room", r.ID, "user_id", c.UserID, "clients", len(r.clients))

		case c := <-r.unregister:
			if _, ok := r.clients[c]; ok {
				delete(r.clients, c)
				close(c.send)
			}
			if len(r.clients) == 0 {
				r.hub.remove(r)
				r.hub.log.Debug("room empty, closing", "room", r.ID)
				return
			}

		case message := <-r.broadcast:
			for c := range r.clients {
				select {
				case c.send <- message:
				default:
					// Slow client. Drop it rather than stall the room.
					close(c.send)
					delete(r.clients, c)
				}
			}
			if len(r.clients) == 0 {
				r.hub.remove(r)
				return
			}
		}
	}
}
