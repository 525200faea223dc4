package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// MessageResponse is one message in the GET /messages payload.
type MessageResponse struct {
	Text       string  `json:"text"`
	IsFromUser bool    `json:"is_from_user"`
	Timestamp  float64 `json:"timestamp"`
	Date       string  `json:"date"`
}

// MessagesResponse is the GET /messages payload.
type MessagesResponse struct {
	SenderID string            `json:"sender_id"`
	Messages []MessageResponse `json:"messages"`
}

func formatTimestamp(ts float64) string {
	secs := int64(ts)
	nsecs := int64((ts - float64(secs)) * 1e9)
	return time.Unix(secs, nsecs).Format(time.RFC3339)
}

// Messages handles GET /messages/{sender_id}: conversation history, oldest
// first, capped at the configured fetch limit. Conversations not yet present
// locally are served from the foreign log directly.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	senderID := chi.URLParam(r, "sender_id")
	if senderID == "" {
		h.Error(w, http.StatusBadRequest, "sender_id required")
		return
	}

	history, err := h.store.History(r.Context(), senderID, h.fetchLimit)
	if err != nil {
		h.logger.Error().Err(err).Str("sender_id", senderID).Msg("failed to fetch history")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	messages := make([]MessageResponse, len(history))
	for i, m := range history {
		messages[i] = MessageResponse{
			Text:       m.Text,
			IsFromUser: m.IsFromUser(),
			Timestamp:  m.Timestamp,
			Date:       formatTimestamp(m.Timestamp),
		}
	}

	// A conversation the poller has not absorbed yet has no local history;
	// fall back to reading it straight from the foreign log.
	if len(messages) == 0 && h.foreign != nil {
		foreign, err := h.foreign.MessagesForKey(r.Context(), senderID, h.fetchLimit)
		if err != nil {
			h.logger.Error().Err(err).Str("sender_id", senderID).Msg("failed to read foreign history")
			h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
			return
		}
		for _, m := range foreign {
			messages = append(messages, MessageResponse{
				Text:       m.Text,
				IsFromUser: m.IsFromUser,
				Timestamp:  m.Timestamp,
				Date:       formatTimestamp(m.Timestamp),
			})
		}
	}

	h.JSON(w, http.StatusOK, MessagesResponse{
		SenderID: senderID,
		Messages: messages,
	})
}
