package models

// Direction indicates who authored a message relative to the bridge owner.
type Direction int

const (
	// Inbound messages were written by the conversation counterparty.
	Inbound Direction = iota
	// Outbound messages were sent on the owner's behalf.
	Outbound
)

// Message is a single persisted communication unit. Messages are immutable
// once saved; the id is assigned by the local store, not by the foreign log.
type Message struct {
	ID        int64     `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Direction Direction `json:"-"`
	Timestamp float64   `json:"timestamp"` // seconds since Unix epoch
}

// IsFromUser reports whether the message came from the counterparty. The
// name follows the wire format, where "user" means the person texting in.
func (m Message) IsFromUser() bool {
	return m.Direction == Inbound
}
