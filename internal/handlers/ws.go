package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/profitble/bridge/internal/models"
)

var upgrader = websocket.Upgrader{
	// The bridge serves a local web UI; origins are not restricted.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient adapts a websocket connection to the hub's Client interface.
// Writes are serialized so concurrent broadcasts cannot interleave frames.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

func (c *wsClient) Close() error {
	return c.conn.Close()
}

// WebSocket handles GET /ws: subscribes the caller to live events until the
// connection drops.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn}
	id := h.hub.Subscribe(client)
	defer h.hub.Unsubscribe(id)

	// Drain inbound frames; clients only listen, but reading is what
	// detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
