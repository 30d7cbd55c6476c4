package markup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	boldPattern       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	codeTokenPattern  = regexp.MustCompile("\x00([0-9]+)\x00")
)

// codeMark delimits the placeholder a code span is parked behind while the
// bold and link rules run. NUL never survives into output.
const codeMark = "\x00"

// renderInline applies the span-level rules to escaped text: code, then bold,
// then links. Code contents are parked behind placeholders so the later rules
// cannot rewrite them, yet bold and links may still enclose a code span.
func renderInline(s string) string {
	s = strings.ReplaceAll(s, codeMark, "\uFFFD")

	var spans []string
	s = inlineCodePattern.ReplaceAllStringFunc(s, func(m string) string {
		spans = append(spans, m[1:len(m)-1])
		return codeMark + strconv.Itoa(len(spans)-1) + codeMark
	})

	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = linkPattern.ReplaceAllStringFunc(s, func(m string) string {
		return renderLink(m, spans)
	})

	if len(spans) == 0 {
		return s
	}
	return restoreCode(s, spans, func(code string) string {
		return "<code>" + code + "</code>"
	})
}

func restoreCode(s string, spans []string, wrap func(string) string) string {
	return codeTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		i, err := strconv.Atoi(tok[1 : len(tok)-1])
		if err != nil || i >= len(spans) {
			return ""
		}
		return wrap(spans[i])
	})
}

// renderLink builds an anchor. A code span inside the target is put back as
// the backtick text it was written as; only the label keeps code markup.
func renderLink(match string, spans []string) string {
	m := linkPattern.FindStringSubmatch(match)
	label := m[1]
	target := restoreCode(m[2], spans, func(code string) string {
		return "`" + code + "`"
	})
	href, ok := safeHref(target)
	if !ok {
		return label
	}
	return `<a href="` + href + `" target="_blank" rel="noopener noreferrer">` + label + `</a>`
}

// safeHref turns an escaped link target into an attribute-safe href.
// Only web, mail and relative targets are linked.
func safeHref(escaped string) (string, bool) {
	raw := strings.TrimSpace(unescape(escaped))
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
	default:
		return "", false
	}
	return escapeAttr(raw), true
}
