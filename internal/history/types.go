package history

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Valid reports whether r is a role the store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAI
}

// Message is one persisted turn. Content is the raw markdown as received,
// never rendered markup, so re-rendering a stored message reproduces the
// original view. For image messages Content is the stored image file name.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	IsImage        bool      `json:"is_image,omitempty"`
	Model          string    `json:"model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Sequence       int       `json:"sequence"`
}

// ConversationSummary is a row of the conversation listing.
type ConversationSummary struct {
	ID           string `json:"id"`
	MessageCount int    `json:"message_count"`
	Title        string `json:"title,omitempty"` // first user message
}

// NewID returns a fresh identifier for messages and conversations.
func NewID() string {
	return uuid.NewString()
}
