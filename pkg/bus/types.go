package bus

// InboundMessage is one message received from the chat platform, before any
// filtering. Text is empty for photos, stickers and service messages; SenderID is
// empty when the platform reported no sender.
type InboundMessage struct {
	UpdateID  int    `json:"update_id"`
	ChatID    int64  `json:"chat_id"`
	SenderID  string `json:"sender_id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Text      string `json:"text,omitempty"`
}
