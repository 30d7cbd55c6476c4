package markup

import (
	"strings"

	"golang.org/x/net/html"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape replaces the characters that can open markup with their entities.
// Quotes are left alone; values that end up inside attributes go through
// escapeAttr instead.
func Escape(s string) string {
	return escaper.Replace(s)
}

// unescape reverses Escape (and any other entity the text may carry).
func unescape(s string) string {
	return html.UnescapeString(s)
}

// escapeAttr escapes a raw value for use inside a double-quoted attribute.
func escapeAttr(s string) string {
	return html.EscapeString(s)
}
