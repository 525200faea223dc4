package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/applescript"
	"github.com/profitble/bridge/internal/hub"
	"github.com/profitble/bridge/internal/models"
	"github.com/profitble/bridge/internal/store"
)

// Sender executes outbound commands against the Messages app.
type Sender interface {
	Execute(ctx context.Context, cmd applescript.Command) bool
}

// ForeignHistory reads conversation history straight from the foreign log,
// used when the local store has not absorbed a conversation yet.
type ForeignHistory interface {
	MessagesForKey(ctx context.Context, senderID string, limit int) ([]models.ForeignMessage, error)
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store   store.MessageStore
	foreign ForeignHistory
	sender  Sender
	hub     *hub.Hub
	logger  zerolog.Logger

	fetchLimit  int
	showsTyping bool
}

// NewHandler creates a new Handler with the given collaborators. fetchLimit
// caps GET /messages responses; showsTyping enables the typing indicator
// around sends.
func NewHandler(st store.MessageStore, foreign ForeignHistory, sender Sender, h *hub.Hub, fetchLimit int, showsTyping bool, logger zerolog.Logger) *Handler {
	return &Handler{
		store:       st,
		foreign:     foreign,
		sender:      sender,
		hub:         h,
		logger:      logger,
		fetchLimit:  fetchLimit,
		showsTyping: showsTyping,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
