package markup

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlighter colours code bodies with CSS classes. The stylesheet for the
// classes comes from WriteHighlightCSS.
type highlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newHighlighter(styleName string) *highlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &highlighter{
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		style:     style,
	}
}

// code highlights an escaped body. Unknown languages and lexer failures
// return the body unchanged.
func (h *highlighter) code(lang, escaped string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return escaped
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, unescape(escaped))
	if err != nil {
		return escaped
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return escaped
	}
	return buf.String()
}

// WriteHighlightCSS writes the stylesheet matching highlighted code blocks.
func WriteHighlightCSS(w io.Writer, styleName string) error {
	h := newHighlighter(styleName)
	return h.formatter.WriteCSS(w, h.style)
}
