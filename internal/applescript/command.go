package applescript

// Kind identifies an external action type.
type Kind int

const (
	// SendMessage delivers Text to Recipient.
	SendMessage Kind = iota
	// ShowTyping surfaces a transient typing indicator for Recipient.
	ShowTyping
	// ClearTyping dismisses the indicator opened by ShowTyping.
	ClearTyping
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case SendMessage:
		return "send_message"
	case ShowTyping:
		return "show_typing"
	case ClearTyping:
		return "clear_typing"
	}
	return "unknown"
}

// Command fully describes one fallible external action.
type Command struct {
	Kind      Kind
	Recipient string
	Text      string
}

// Script renders the AppleScript body for the command. Payloads are escaped
// before being embedded.
func (c Command) Script() string {
	switch c.Kind {
	case SendMessage:
		return sendScript(c.Recipient, c.Text)
	case ShowTyping:
		return showTypingScript(c.Recipient)
	case ClearTyping:
		return clearTypingScript
	}
	return ""
}
