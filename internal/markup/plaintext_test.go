package markup

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"inline code and link", "`code` and [a link](http://x))", "code and a link"},
		{"bold", "**hi** there", "hi there"},
		{"heading and list", "# Title\n- item **bold**", "Title\nitem bold"},
		{"code block removed", "before\n```go\ncode\n```\nafter", "before\n\nafter"},
		{"stray fence", "text\n```go", "text"},
		{"balanced parens kept", "(see [docs](http://x))", "(see docs)"},
		{"underscores dropped", "snake_case", "snakecase"},
		{"html left as text", "<b>x</b>", "<b>x</b>"},
		{"only markup", "```\n```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
