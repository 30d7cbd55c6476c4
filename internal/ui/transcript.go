package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samsaffron/alicia/internal/chat"
	"github.com/samsaffron/alicia/internal/history"
	"golang.org/x/term"
)

const defaultWidth = 80

// TerminalWidth returns the width of f, or 80 when f is not a terminal.
func TerminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Truncate shortens s to maxWidth display cells with an ellipsis.
func Truncate(s string, maxWidth int) string {
	return runewidth.Truncate(s, maxWidth, "...")
}

// Transcript prints chat views to a terminal.
type Transcript struct {
	w      io.Writer
	styles *Styles
	width  int

	// Raw prints replies as stored markdown instead of rendering them.
	Raw bool
}

// NewTranscript creates a printer writing to w with the given wrap width.
func NewTranscript(w io.Writer, width int) *Transcript {
	if width <= 0 {
		width = defaultWidth
	}
	return &Transcript{w: w, styles: NewStyles(w), width: width}
}

// Print writes one message: a role label line followed by the body.
func (t *Transcript) Print(v chat.View) {
	fmt.Fprintln(t.w, t.label(v))
	fmt.Fprintln(t.w, t.body(v))
	fmt.Fprintln(t.w)
}

// PrintAll writes every view in order.
func (t *Transcript) PrintAll(views []chat.View) {
	for _, v := range views {
		t.Print(v)
	}
}

func (t *Transcript) label(v chat.View) string {
	if v.Role == history.RoleUser {
		return t.styles.UserLabel.Render("You")
	}
	label := t.styles.AILabel.Render("Alicia")
	if v.Model != "" {
		label += " " + t.styles.Muted.Render("("+v.Model+")")
	}
	return label
}

func (t *Transcript) body(v chat.View) string {
	switch {
	case v.Role == history.RoleUser:
		return wordwrap.String(v.Raw, t.width)
	case v.Image != "":
		return t.styles.Muted.Render("[image] " + v.Image)
	case v.Raw == chat.MissingImageText:
		return t.styles.Muted.Render(v.Raw)
	case t.Raw:
		return v.Raw
	default:
		return RenderMarkdown(v.Raw, t.width)
	}
}

// PrintConversations writes one line per conversation, titles truncated to
// fit the width.
func (t *Transcript) PrintConversations(convs []history.ConversationSummary) {
	for _, c := range convs {
		prefix := fmt.Sprintf("%-36s %4d  ", c.ID, c.MessageCount)
		title := strings.ReplaceAll(c.Title, "\n", " ")
		room := t.width - runewidth.StringWidth(prefix)
		if room < 10 {
			room = 10
		}
		fmt.Fprintln(t.w, prefix+Truncate(title, room))
	}
}
