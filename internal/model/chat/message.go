package chat

import "time"

// Message is one turn in a two-party conversation. Text and Image are
// both optional on the wire but a valid message carries at least one.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Text        string    `json:"text,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SendRequest is the payload for sending a message to a peer.
type SendRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Empty reports whether the request carries no content at all.
func (r SendRequest) Empty() bool {
	return r.Text == "" && r.Image == ""
}
