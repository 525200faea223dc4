package models

// Event types pushed to streaming subscribers.
const (
	EventMessageReceived = "message_received"
	EventMessageSent     = "message_sent"
)

// Event is a broadcastable notification derived 1:1 from a newly persisted
// message.
type Event struct {
	Type      string  `json:"type"`
	SenderID  string  `json:"sender_id"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// EventFromMessage derives the broadcast payload for a persisted message.
func EventFromMessage(m *Message) Event {
	typ := EventMessageSent
	if m.Direction == Inbound {
		typ = EventMessageReceived
	}
	return Event{
		Type:      typ,
		SenderID:  m.SenderID,
		Message:   m.Text,
		Timestamp: m.Timestamp,
	}
}
