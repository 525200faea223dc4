// Package hub fans out events to live streaming subscribers. Membership is
// explicit: callers obtain a handle id on Subscribe and release it on
// Unsubscribe; a client whose Send fails is removed automatically.
package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/metrics"
	"github.com/profitble/bridge/internal/models"
)

// Client is one live subscriber capable of receiving serialized events.
type Client interface {
	Send(event models.Event) error
	Close() error
}

// Hub holds the live subscriber set. Safe for concurrent subscribe,
// unsubscribe and broadcast.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[string]Client
}

// New creates an empty hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]Client),
	}
}

// Subscribe registers a client and returns its handle id.
func (h *Hub) Subscribe(c Client) string {
	id := uuid.NewString()

	h.mu.Lock()
	h.clients[id] = c
	n := len(h.clients)
	// Update the gauge under the lock so racing membership changes cannot
	// leave it at a stale count.
	metrics.ConnectedClients.Set(float64(n))
	h.mu.Unlock()

	h.logger.Info().Str("client_id", id).Int("clients", n).Msg("subscriber connected")
	return id
}

// Unsubscribe removes a client. Idempotent: unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		metrics.ConnectedClients.Set(float64(len(h.clients)))
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.Close()
	h.logger.Info().Str("client_id", id).Int("clients", n).Msg("subscriber disconnected")
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers the event to every currently registered client. The
// membership is snapshotted first, so clients added mid-broadcast wait for
// the next event and nobody receives one event twice. A failed delivery
// unsubscribes that client and never blocks the others.
func (h *Hub) Broadcast(event models.Event) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	snapshot := make(map[string]Client, len(h.clients))
	for id, c := range h.clients {
		snapshot[id] = c
	}
	h.mu.RUnlock()

	var failed []string
	for id, c := range snapshot {
		if err := c.Send(event); err != nil {
			h.logger.Warn().Err(err).Str("client_id", id).Msg("dropping unreachable subscriber")
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		h.Unsubscribe(id)
	}

	metrics.EventsBroadcast.WithLabelValues(event.Type).Inc()
}
