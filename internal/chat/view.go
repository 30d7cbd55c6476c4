package chat

import (
	"time"

	"github.com/samsaffron/alicia/internal/history"
)

// View is one message as the page displays it. HTML is ready to insert:
// user text is escaped, AI replies are rendered markdown (wrapped in a
// disclosure when long) and images are an <img> element.
type View struct {
	ID          string       `json:"id"`
	Role        history.Role `json:"role"`
	HTML        string       `json:"html"`
	Collapsible bool         `json:"collapsible,omitempty"`
	Speech      string       `json:"speech,omitempty"`
	SpeechLang  string       `json:"speech_lang,omitempty"`
	Image       string       `json:"image,omitempty"` // URL of a generated image
	Model       string       `json:"model,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`

	// Raw is the stored content, kept for terminal rendering.
	Raw string `json:"-"`
}

// Turn is the pair of messages produced by one user action.
type Turn struct {
	User  View `json:"user"`
	Reply View `json:"reply"`
}
