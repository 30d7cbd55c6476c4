package markup

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	DefaultThreshold     = 700
	DefaultPreviewLength = 600
	Ellipsis             = "..."
)

// Disclosure is the collapsed/expanded pair for a long reply. Exactly one
// of the two views is visible at a time; toggling never re-renders.
type Disclosure struct {
	Collapsed string
	Expanded  string
	expanded  bool
}

// Collapse builds a disclosure with the default threshold and preview
// length. It returns nil when rawLen does not exceed the threshold.
func Collapse(fragment string, rawLen int) *Disclosure {
	return collapse(fragment, rawLen, DefaultThreshold, DefaultPreviewLength)
}

func collapse(fragment string, rawLen, threshold, previewLen int) *Disclosure {
	if rawLen <= threshold {
		return nil
	}
	return &Disclosure{
		Collapsed: truncateMarkup(fragment, previewLen),
		Expanded:  fragment,
	}
}

func (d *Disclosure) Toggle()          { d.expanded = !d.expanded }
func (d *Disclosure) IsExpanded() bool { return d.expanded }

// Visible returns the markup of the view currently shown.
func (d *Disclosure) Visible() string {
	if d.expanded {
		return d.Expanded
	}
	return d.Collapsed
}

// Label is the caption of the toggle control.
func (d *Disclosure) Label() string {
	if d.expanded {
		return "Show less"
	}
	return "Show more"
}

// HTML renders both views and the toggle. The hidden view carries the
// hidden attribute so the page only flips attributes on click.
func (d *Disclosure) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="collapsible">`)
	writeView(&sb, "preview", d.Collapsed, !d.expanded)
	writeView(&sb, "full", d.Expanded, d.expanded)
	sb.WriteString(`<button class="collapse-toggle" type="button">`)
	sb.WriteString(d.Label())
	sb.WriteString(`</button></div>`)
	return sb.String()
}

func writeView(sb *strings.Builder, class, body string, visible bool) {
	sb.WriteString(`<div class="collapsible-content `)
	sb.WriteString(class)
	if class == "preview" {
		sb.WriteString(`" data-collapsed="true"`)
	} else {
		sb.WriteString(`" data-collapsed="false"`)
	}
	if !visible {
		sb.WriteString(" hidden")
	}
	sb.WriteString(">")
	sb.WriteString(body)
	sb.WriteString("</div>")
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// truncateMarkup keeps at most limit characters of markup without splitting
// a tag or an entity, appends the ellipsis and closes every element still
// open at the cut. Markup that already fits is returned unchanged.
func truncateMarkup(fragment string, limit int) string {
	if utf8.RuneCountInString(fragment) <= limit {
		return fragment
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	var open []string
	budget := limit

loop:
	for budget > 0 {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		n := utf8.RuneCountInString(raw)
		switch tt {
		case html.TextToken:
			if n > budget {
				sb.WriteString(cutText(raw, budget))
				break loop
			}
		case html.StartTagToken:
			if n > budget {
				break loop
			}
			name, _ := z.TagName()
			if tag := string(name); !voidElements[tag] {
				open = append(open, tag)
			}
		case html.EndTagToken:
			if n > budget {
				break loop
			}
			name, _ := z.TagName()
			open = popTag(open, string(name))
		default:
			if n > budget {
				break loop
			}
		}
		sb.WriteString(raw)
		budget -= n
	}

	sb.WriteString(Ellipsis)
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</")
		sb.WriteString(open[i])
		sb.WriteString(">")
	}
	return sb.String()
}

func popTag(open []string, name string) []string {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == name {
			return open[:i]
		}
	}
	return open
}

// cutText shortens escaped text to at most n characters, backing off to the
// start of any entity the cut would split.
func cutText(s string, n int) string {
	end := len(s)
	for i := range s {
		if n == 0 {
			end = i
			break
		}
		n--
	}
	if amp := strings.LastIndexByte(s[:end], '&'); amp >= 0 && !strings.Contains(s[amp:end], ";") {
		end = amp
	}
	return s[:end]
}
