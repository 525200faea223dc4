package handlers

import (
	"net/http"

	"github.com/profitble/bridge/internal/models"
)

// Conversations handles GET /conversations: every known counterparty with
// its last message, most recently active first.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.store.Conversations(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list conversations")
		h.Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	if conversations == nil {
		conversations = []models.Conversation{}
	}
	h.JSON(w, http.StatusOK, conversations)
}
