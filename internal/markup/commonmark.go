package markup

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var commonMark = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table),
)

// Raw HTML in the source is already dropped by goldmark; the policy covers
// what markdown itself can produce, like javascript: links.
var ugcPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	return p
}()

func renderCommonMark(md string, hl *highlighter) string {
	var buf bytes.Buffer
	if err := commonMark.Convert([]byte(md), &buf); err != nil {
		return renderBlocks(Parse(md), hl)
	}
	safe := ugcPolicy.Sanitize(buf.String())
	return strings.TrimSpace(rewrapCommonMark(safe, hl))
}

// rewrapCommonMark turns <pre><code> into the copyable code-block unit and
// gives every link the new-tab attributes.
func rewrapCommonMark(src string, hl *highlighter) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var out strings.Builder

	inPre := false
	lang := defaultLang
	var body strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		tok := z.Token()

		if inPre {
			switch {
			case tt == html.StartTagToken && tok.Data == "code":
				for _, a := range tok.Attr {
					if a.Key == "class" && strings.HasPrefix(a.Val, "language-") {
						lang = strings.TrimPrefix(a.Val, "language-")
					}
				}
			case tt == html.EndTagToken && tok.Data == "code":
			case tt == html.EndTagToken && tok.Data == "pre":
				code := strings.TrimSuffix(body.String(), "\n")
				if hl != nil {
					code = hl.code(lang, code)
				}
				out.WriteString(codeBlockHTML(lang, code))
				inPre = false
			default:
				body.WriteString(raw)
			}
			continue
		}

		switch {
		case tt == html.StartTagToken && tok.Data == "pre":
			inPre = true
			lang = defaultLang
			body.Reset()
		case tt == html.StartTagToken && tok.Data == "a":
			href := ""
			for _, a := range tok.Attr {
				if a.Key == "href" {
					href = a.Val
				}
			}
			if href == "" {
				out.WriteString("<a>")
				continue
			}
			out.WriteString(`<a href="` + escapeAttr(href) + `" target="_blank" rel="noopener noreferrer">`)
		default:
			out.WriteString(raw)
		}
	}
	return out.String()
}
