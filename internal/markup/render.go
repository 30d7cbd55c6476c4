// Package markup turns chat markdown into safe HTML fragments.
//
// Every character of input is escaped exactly once before any rule emits a
// tag, so the output can be inserted into a page without further escaping.
// Long replies get a collapsed/expanded pair (see Collapse) and every reply
// has a plain-text reading for speech (see PlainText).
package markup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Engine selects the markdown implementation used by a Renderer.
type Engine string

const (
	EngineBasic      Engine = "basic"
	EngineCommonMark Engine = "commonmark"
)

// Options configures a Renderer. Zero values fall back to the defaults.
type Options struct {
	Engine         Engine
	Highlight      bool
	HighlightStyle string
	Threshold      int
	PreviewLength  int
}

// DefaultOptions returns the settings used by the package-level functions.
func DefaultOptions() Options {
	return Options{
		Engine:         EngineBasic,
		HighlightStyle: "github",
		Threshold:      DefaultThreshold,
		PreviewLength:  DefaultPreviewLength,
	}
}

// Renderer renders replies with a fixed set of options. It holds no mutable
// state and is safe for concurrent use.
type Renderer struct {
	opts Options
	hl   *highlighter
}

// NewRenderer validates opts and builds a Renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.Engine == "" {
		opts.Engine = def.Engine
	}
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = def.HighlightStyle
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = def.PreviewLength
	}
	switch opts.Engine {
	case EngineBasic, EngineCommonMark:
	default:
		return nil, fmt.Errorf("unknown render engine %q (want %q or %q)", opts.Engine, EngineBasic, EngineCommonMark)
	}

	r := &Renderer{opts: opts}
	if opts.Highlight {
		r.hl = newHighlighter(opts.HighlightStyle)
	}
	return r, nil
}

// Options reports the effective options.
func (r *Renderer) Options() Options { return r.opts }

// Render converts markdown to an HTML fragment.
func (r *Renderer) Render(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if r.opts.Engine == EngineCommonMark {
		return renderCommonMark(md, r.hl)
	}
	return renderBlocks(Parse(md), r.hl)
}

// Collapse builds the disclosure view for a fragment, or nil when the source
// is short enough to show in full.
func (r *Renderer) Collapse(fragment string, rawLen int) *Disclosure {
	return collapse(fragment, rawLen, r.opts.Threshold, r.opts.PreviewLength)
}

// View is everything the page needs to display one reply.
type View struct {
	HTML       string
	Disclosure *Disclosure
	Speech     string
}

// Markup is the markup to insert: the disclosure wrapper for long replies,
// the bare fragment otherwise.
func (v View) Markup() string {
	if v.Disclosure != nil {
		return v.Disclosure.HTML()
	}
	return v.HTML
}

// Message renders one reply and derives its disclosure and speech text.
func (r *Renderer) Message(md string) View {
	fragment := r.Render(md)
	return View{
		HTML:       fragment,
		Disclosure: r.Collapse(fragment, utf8.RuneCountInString(md)),
		Speech:     PlainText(md),
	}
}

var defaultRenderer, _ = NewRenderer(DefaultOptions())

// Render converts markdown to an HTML fragment with the default options.
func Render(md string) string {
	return defaultRenderer.Render(md)
}

// blockTagPattern matches paragraph markup that must not be wrapped in <p>.
var blockTagPattern = regexp.MustCompile(`^<(h1|h2|h3|ul|div|pre|blockquote|p|code|img)`)

const codeBlockFormat = `<div class="code-block"><div class="code-bar"><span class="code-lang">%s</span>` +
	`<button class="copy-btn" type="button">Copy</button></div>` +
	`<pre><code class="language-%s">%s</code></pre></div>`

func codeBlockHTML(lang, body string) string {
	return fmt.Sprintf(codeBlockFormat, lang, lang, body)
}

func renderBlocks(blocks []Block, hl *highlighter) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, renderBlock(b, hl))
	}
	return strings.Join(out, "\n")
}

func renderBlock(b Block, hl *highlighter) string {
	switch b.Kind {
	case BlockCode:
		body := b.Text
		if hl != nil {
			body = hl.code(b.Lang, body)
		}
		return codeBlockHTML(b.Lang, body)
	case BlockHeading:
		return fmt.Sprintf("<h%d>%s</h%d>", b.Level, renderInline(b.Text), b.Level)
	case BlockList:
		var sb strings.Builder
		sb.WriteString("<ul>")
		for _, item := range b.Items {
			sb.WriteString("<li>")
			sb.WriteString(renderInline(item))
			sb.WriteString("</li>")
		}
		sb.WriteString("</ul>")
		return sb.String()
	default:
		p := renderInline(b.Text)
		if blockTagPattern.MatchString(p) {
			return p
		}
		return "<p>" + p + "</p>"
	}
}
