package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/profitble/bridge/internal/applescript"
	"github.com/profitble/bridge/internal/metrics"
	"github.com/profitble/bridge/internal/models"
)

// SendRequest is the POST /send request body.
type SendRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Send handles POST /send: deliver through the Messages app, then persist
// the outbound message and notify subscribers. Delivery exhausting its
// retries surfaces as a 500 with no persistence or broadcast.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Recipient == "" || req.Message == "" {
		h.Error(w, http.StatusBadRequest, "recipient and message required")
		return
	}

	ctx := r.Context()

	if h.showsTyping {
		// Indicator failures are cosmetic; the send proceeds regardless.
		h.sender.Execute(ctx, applescript.Command{Kind: applescript.ShowTyping, Recipient: req.Recipient})
		defer h.sender.Execute(ctx, applescript.Command{Kind: applescript.ClearTyping})
	}

	ok := h.sender.Execute(ctx, applescript.Command{
		Kind:      applescript.SendMessage,
		Recipient: req.Recipient,
		Text:      req.Message,
	})
	if !ok {
		metrics.SendsTotal.WithLabelValues("failed").Inc()
		h.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	msg, err := h.store.SaveMessage(ctx, req.Recipient, req.Message, models.Outbound)
	if err != nil {
		h.logger.Error().Err(err).Str("recipient", req.Recipient).Msg("sent message could not be persisted")
		h.Error(w, http.StatusInternalServerError, "failed to record message")
		return
	}

	h.hub.Broadcast(models.EventFromMessage(msg))
	metrics.SendsTotal.WithLabelValues("ok").Inc()

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
