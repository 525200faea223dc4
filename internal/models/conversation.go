package models

// Conversation is a derived per-counterparty view. It exists whenever at
// least one message exists for the sender and is never stored directly.
type Conversation struct {
	SenderID      string  `json:"sender_id"`
	LastMessage   string  `json:"last_message"`
	LastTimestamp float64 `json:"last_timestamp"`
	UnreadCount   int     `json:"unread_count"`
}
