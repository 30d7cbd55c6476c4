package markup

import (
	"regexp"
	"strings"
)

var (
	fencedBlockPattern   = regexp.MustCompile("(?s)```.*?```")
	strayFencePattern    = regexp.MustCompile("(?m)```.*$")
	plainLinkPattern     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	listMarkerPattern    = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	headingMarkerPattern = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	markerCharsPattern   = regexp.MustCompile("[`*_\\[\\]]")
)

// PlainText reduces markdown to the words a speech engine should read.
// Code blocks are dropped, links keep their label and markup characters
// disappear. It works on the markdown itself and never parses HTML.
func PlainText(md string) string {
	if md == "" {
		return ""
	}
	s := strings.ReplaceAll(md, "\r\n", "\n")
	s = fencedBlockPattern.ReplaceAllString(s, "")
	s = strayFencePattern.ReplaceAllString(s, "")
	s = plainLinkPattern.ReplaceAllString(s, "$1")
	s = listMarkerPattern.ReplaceAllString(s, "")
	s = headingMarkerPattern.ReplaceAllString(s, "")
	s = markerCharsPattern.ReplaceAllString(s, "")
	s = dropUnbalancedParens(s)
	return strings.TrimSpace(s)
}

func dropUnbalancedParens(s string) string {
	if !strings.Contains(s, ")") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
