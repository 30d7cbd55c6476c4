package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the terminal color palette
type Theme struct {
	Primary   lipgloss.Color // AI label, strong text
	Secondary lipgloss.Color // user label, headings, links
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Muted     lipgloss.Color // timestamps, placeholders
	Text      lipgloss.Color
}

// DefaultTheme returns the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7c3aed"), // violet, the web UI accent
		Secondary: lipgloss.Color("#0ea5e9"),
		Error:     lipgloss.Color("#ef4444"),
		Warning:   lipgloss.Color("#f59e0b"),
		Muted:     lipgloss.Color("#94a3b8"),
		Text:      lipgloss.Color("#e2e8f0"),
	}
}

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	theme *Theme

	UserLabel lipgloss.Style
	AILabel   lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Bold      lipgloss.Style
}

// NewStyles creates styles for the given output. Color is dropped
// automatically when output is not a terminal.
func NewStyles(output io.Writer) *Styles {
	return NewStylesWithTheme(output, DefaultTheme())
}

// NewStylesWithTheme creates styles with a specific theme
func NewStylesWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)
	return &Styles{
		theme: theme,
		UserLabel: r.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),
		AILabel: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),
		Muted: r.NewStyle().
			Foreground(theme.Muted),
		Error: r.NewStyle().
			Foreground(theme.Error),
		Bold: r.NewStyle().
			Bold(true),
	}
}

// DefaultStyles returns styles for stderr
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr)
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// GlamourStyle returns a glamour StyleConfig based on the default theme
func GlamourStyle() ansi.StyleConfig {
	return GlamourStyleFromTheme(DefaultTheme())
}

// GlamourStyleFromTheme creates a glamour StyleConfig from the given theme.
// It covers what the chat renderer emits: headings up to h3, bullet lists,
// bold, inline code, links and fenced code.
func GlamourStyleFromTheme(theme *Theme) ansi.StyleConfig {
	primary := string(theme.Primary)
	secondary := string(theme.Secondary)
	warning := string(theme.Warning)
	muted := string(theme.Muted)
	text := string(theme.Text)

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &text,
			},
		},
		Paragraph: ansi.StyleBlock{},
		List: ansi.StyleList{
			LevelIndent: 2,
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       &secondary,
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "# "}},
		H2: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "## "}},
		H3: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "### "}},
		Strikethrough: ansi.StylePrimitive{
			CrossedOut: boolPtr(true),
		},
		Emph: ansi.StylePrimitive{
			Italic: boolPtr(true),
		},
		Strong: ansi.StylePrimitive{
			Bold:  boolPtr(true),
			Color: &primary,
		},
		Item: ansi.StylePrimitive{
			BlockPrefix: "• ",
		},
		Enumeration: ansi.StylePrimitive{
			BlockPrefix: ". ",
			Color:       &secondary,
		},
		Link: ansi.StylePrimitive{
			Color:     &secondary,
			Underline: boolPtr(true),
		},
		LinkText: ansi.StylePrimitive{
			Color: &primary,
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &warning,
			},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{
					Color: &text,
				},
				Margin: uintPtr(2),
			},
			Chroma: &ansi.Chroma{
				Text:          ansi.StylePrimitive{Color: &text},
				Comment:       ansi.StylePrimitive{Color: &muted},
				Keyword:       ansi.StylePrimitive{Color: &primary},
				KeywordType:   ansi.StylePrimitive{Color: &secondary},
				NameFunction:  ansi.StylePrimitive{Color: &secondary},
				LiteralNumber: ansi.StylePrimitive{Color: &warning},
				LiteralString: ansi.StylePrimitive{Color: &warning},
			},
		},
		Table: ansi.StyleTable{
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func uintPtr(u uint) *uint {
	return &u
}

func stringPtr(s string) *string {
	return &s
}
