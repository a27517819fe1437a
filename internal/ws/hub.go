package ws

import (
	"context"
	"log"
	"sync"

	"goodbomb/internal/store"
)

// Hub fans committed round snapshots out to every connected client. Unlike a
// request/response API there is no per-client state: everyone watches the
// same bomb.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}

	render func(store.State) []byte
}

// NewHub creates a hub. render turns a committed state into the wire payload
// pushed to clients.
func NewHub(render func(store.State) []byte) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		render:  render,
	}
}

// Run consumes the store subscription until ctx is done, pushing every
// committed state to all clients.
func (h *Hub) Run(ctx context.Context, states <-chan store.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			h.Broadcast(h.render(st))
		}
	}
}

// Broadcast queues payload for every connected client. Clients that cannot
// keep up are dropped; they can reconnect and re-sync from a fresh snapshot.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.Send <- payload:
		default:
			log.Printf("Hub.Broadcast: dropping slow client user=%s", c.PlayerID)
			delete(h.clients, c)
			close(c.Send)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	h.mu.Unlock()
}

// ClientCount reports the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
