package models

// ForeignRow is one row read from the foreign message log. ForeignID is the
// log's own ROWID and lives in a different coordinate space than Message.ID.
type ForeignRow struct {
	ForeignID int64
	SenderID  string
	Text      string
	Direction Direction
	Timestamp float64
}

// ForeignMessage is a message as read directly from the foreign log, used by
// the reader's per-contact query surface.
type ForeignMessage struct {
	Text       string  `json:"message"`
	IsFromUser bool    `json:"is_from_user"`
	Timestamp  float64 `json:"timestamp"`
}
