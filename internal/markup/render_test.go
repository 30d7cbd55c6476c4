package markup

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"a & b", "a &amp; b"},
		{"<b>", "&lt;b&gt;"},
		{"&amp;", "&amp;amp;"},
		{`"quoted"`, `"quoted"`},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderExact(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n ", ""},
		{"paragraph", "hello", "<p>hello</p>"},
		{"escaped script", "<script>alert(1)</script>", "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"},
		{"ampersand", "a & b", "<p>a &amp; b</p>"},
		{"two paragraphs", "one\n\ntwo", "<p>one</p>\n<p>two</p>"},
		{"soft break kept", "one\ntwo", "<p>one\ntwo</p>"},
		{"heading then text", "# Title\ntext", "<h1>Title</h1>\n<p>text</p>"},
		{"heading levels", "## Two\n### Three", "<h2>Two</h2>\n<h3>Three</h3>"},
		{"four hashes is text", "#### Four", "<p>#### Four</p>"},
		{"bold", "a **b** c", "<p>a <strong>b</strong> c</p>"},
		{"inline code protects bold", "use `a**b**` and **c**", "<p>use <code>a**b**</code> and <strong>c</strong></p>"},
		{"leading inline code is not wrapped", "`x` y", "<code>x</code> y"},
		{"bold around code", "**Run `make` now**", "<p><strong>Run <code>make</code> now</strong></p>"},
		{"code inside bold keeps stars", "**see `a*b`**", "<p><strong>see <code>a*b</code></strong></p>"},
		{"two code spans in bold", "**`a` or `b`**", "<p><strong><code>a</code> or <code>b</code></strong></p>"},
		{"nul byte replaced", "a\x00b", "<p>a�b</p>"},
		{"list", "- a\n- b", "<ul><li>a</li><li>b</li></ul>"},
		{"mixed list markers group", "- a\n* b\n  - c", "<ul><li>a</li><li>b</li><li>c</li></ul>"},
		{"separated lists", "- a\n- b\n\n- c", "<ul><li>a</li><li>b</li></ul>\n<ul><li>c</li></ul>"},
		{"list after text", "intro\n- a", "<p>intro</p>\n<ul><li>a</li></ul>"},
		{"unterminated fence", "```go\nx", "<p>```go\nx</p>"},
		{
			"link",
			"[go](https://go.dev)",
			`<p><a href="https://go.dev" target="_blank" rel="noopener noreferrer">go</a></p>`,
		},
		{
			"link query ampersand",
			"[q](https://x.io/?a=1&b=2)",
			`<p><a href="https://x.io/?a=1&amp;b=2" target="_blank" rel="noopener noreferrer">q</a></p>`,
		},
		{
			"relative link",
			"[docs](/docs)",
			`<p><a href="/docs" target="_blank" rel="noopener noreferrer">docs</a></p>`,
		},
		{
			"link label with code",
			"See [`Parse`](https://go.dev)",
			`<p>See <a href="https://go.dev" target="_blank" rel="noopener noreferrer"><code>Parse</code></a></p>`,
		},
		{
			"bold link with code",
			"**[`go test`](https://go.dev/cmd)**",
			`<p><strong><a href="https://go.dev/cmd" target="_blank" rel="noopener noreferrer"><code>go test</code></a></strong></p>`,
		},
		{
			"code in link target stays text",
			"[x](/a`b`)",
			"<p><a href=\"/a`b`\" target=\"_blank\" rel=\"noopener noreferrer\">x</a></p>",
		},
		{"javascript link degrades", "[x](javascript:alert(1))", "<p>x)</p>"},
		{"data link degrades", "[x](data:text/html,hi)", "<p>x</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderCodeBlocks(t *testing.T) {
	tests := []struct {
		name, in, lang, body string
	}{
		{"language", "```go\nfmt.Println(\"<hi>\")\n```", "go", `fmt.Println("&lt;hi&gt;")`},
		{"default language", "```\nx\n```", "text", "x"},
		{"symbols in language", "```c++\nint x;\n```", "c++", "int x;"},
		{"entity escaped once", "```\n&lt;\n```", "text", "&amp;lt;"},
		{"empty body", "```\n```", "text", ""},
		{"only one trailing newline trimmed", "```\na\n\n```", "text", "a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := codeBlockHTML(tt.lang, tt.body)
			if got := Render(tt.in); got != want {
				t.Errorf("Render(%q) = %q, want %q", tt.in, got, want)
			}
		})
	}
}

func TestRenderCodeBlockUnit(t *testing.T) {
	got := Render("```js\nlet a = 1;\n```")
	want := `<div class="code-block"><div class="code-bar"><span class="code-lang">js</span>` +
		`<button class="copy-btn" type="button">Copy</button></div>` +
		`<pre><code class="language-js">let a = 1;</code></pre></div>`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderKeepsOrder(t *testing.T) {
	in := "# Head\n\nbefore\n```sh\necho hi\n```\nafter\n- item"
	got := Render(in)
	order := []string{"<h1>Head</h1>", "<p>before</p>", `class="language-sh"`, "<p>after</p>", "<li>item</li>"}
	pos := 0
	for _, part := range order {
		i := strings.Index(got[pos:], part)
		if i < 0 {
			t.Fatalf("Render(%q) = %q, missing %q after offset %d", in, got, part, pos)
		}
		pos += i + len(part)
	}
}

func TestRenderDeterministic(t *testing.T) {
	in := "**a** `b` [c](http://d)\n\n- e\n```go\nf\n```"
	first := Render(in)
	for i := 0; i < 5; i++ {
		if got := Render(in); got != first {
			t.Fatalf("Render is not deterministic: %q != %q", got, first)
		}
	}
}

// Every tag in the output must come from the renderer, never from input.
func TestRenderHostileInput(t *testing.T) {
	allowed := map[string]bool{
		"p": true, "h1": true, "h2": true, "h3": true, "ul": true, "li": true,
		"code": true, "pre": true, "strong": true, "a": true, "div": true,
		"span": true, "button": true,
	}
	inputs := []string{
		"<img src=x onerror=alert(1)>",
		"**<b>bold</b>**",
		"# <h1>x</h1>",
		"- <li>item</li>",
		"`<script>`",
		"```html\n<script>alert(1)</script>\n```",
		"[<i>x</i>](http://a)",
		`[x](http://a.com/"onmouseover=alert(1))`,
		"[x](http://a.com/'><script>)",
		"</p></div><iframe>",
	}
	for _, in := range inputs {
		out := Render(in)
		z := html.NewTokenizer(strings.NewReader(out))
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				break
			}
			if tt != html.StartTagToken && tt != html.EndTagToken && tt != html.SelfClosingTagToken {
				continue
			}
			tok := z.Token()
			if !allowed[tok.Data] {
				t.Errorf("Render(%q) = %q, emitted <%s>", in, out, tok.Data)
			}
			for _, a := range tok.Attr {
				if strings.HasPrefix(a.Key, "on") {
					t.Errorf("Render(%q) = %q, emitted attribute %s", in, out, a.Key)
				}
			}
		}
	}
}

func TestRenderLinkAttributeInjection(t *testing.T) {
	in := `[x](http://a.com/"onmouseover=alert(1))`
	got := Render(in)
	if strings.Contains(got, `"onmouseover`) {
		t.Errorf("Render(%q) = %q, quote escaped the href", in, got)
	}
	if !strings.Contains(got, "&#34;onmouseover") {
		t.Errorf("Render(%q) = %q, want the quote entity-encoded", in, got)
	}
}

func TestParseBlocks(t *testing.T) {
	blocks := Parse("# T\npara one\npara two\n\n- a\n- b\n```py\nx\n```")
	want := []BlockKind{BlockHeading, BlockParagraph, BlockList, BlockCode}
	if len(blocks) != len(want) {
		t.Fatalf("Parse() returned %d blocks, want %d: %+v", len(blocks), len(want), blocks)
	}
	for i, b := range blocks {
		if b.Kind != want[i] {
			t.Errorf("block %d kind = %s, want %s", i, b.Kind, want[i])
		}
	}
	if blocks[1].Text != "para one\npara two" {
		t.Errorf("paragraph text = %q", blocks[1].Text)
	}
	if len(blocks[2].Items) != 2 {
		t.Errorf("list items = %v, want 2", blocks[2].Items)
	}
	if blocks[3].Lang != "py" || blocks[3].Text != "x" {
		t.Errorf("code block = %+v", blocks[3])
	}
}

func TestRenderCRLF(t *testing.T) {
	if got, want := Render("- a\r\n- b"), "<ul><li>a</li><li>b</li></ul>"; got != want {
		t.Errorf("Render(CRLF list) = %q, want %q", got, want)
	}
}

// A stored reply must render identically after a reload.
func TestRenderRoundTrip(t *testing.T) {
	raw := "## Plan\n- step **one**\n- step `two`\n\n```go\nfmt.Println(\"<ok>\")\n```\nSee [docs](https://go.dev)."
	first := Render(raw)
	stored := string([]byte(raw))
	if got := Render(stored); got != first {
		t.Errorf("Render after round trip = %q, want %q", got, first)
	}
}

func TestNewRendererRejectsUnknownEngine(t *testing.T) {
	if _, err := NewRenderer(Options{Engine: "bogus"}); err == nil {
		t.Fatal("NewRenderer(bogus) returned nil error")
	}
}

func TestNewRendererDefaults(t *testing.T) {
	r, err := NewRenderer(Options{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	opts := r.Options()
	if opts.Engine != EngineBasic || opts.Threshold != DefaultThreshold || opts.PreviewLength != DefaultPreviewLength {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestRendererMessage(t *testing.T) {
	r, err := NewRenderer(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	short := r.Message("**hi** there")
	if short.Disclosure != nil {
		t.Errorf("short reply has a disclosure")
	}
	if short.Markup() != short.HTML {
		t.Errorf("Markup() = %q, want fragment %q", short.Markup(), short.HTML)
	}
	if short.Speech != "hi there" {
		t.Errorf("Speech = %q, want %q", short.Speech, "hi there")
	}

	long := r.Message(strings.Repeat("word ", 200))
	if long.Disclosure == nil {
		t.Fatal("long reply has no disclosure")
	}
	if !strings.HasPrefix(long.Markup(), `<div class="collapsible">`) {
		t.Errorf("Markup() = %q, want the disclosure wrapper", long.Markup())
	}
}

func TestRendererThresholdCountsRunes(t *testing.T) {
	r, _ := NewRenderer(DefaultOptions())
	// 700 two-byte runes: at the threshold, so not collapsed.
	if v := r.Message(strings.Repeat("é", 700)); v.Disclosure != nil {
		t.Errorf("700 runes collapsed, want full view")
	}
}
