package markup

import (
	"regexp"
	"strings"
)

// BlockKind classifies a rendered unit.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockCode
	BlockList
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockCode:
		return "code"
	case BlockList:
		return "list"
	default:
		return "paragraph"
	}
}

// Block is one classified unit of escaped text. Text and Items are already
// escaped; no tags have been emitted yet.
type Block struct {
	Kind  BlockKind
	Level int      // heading level, 1-3
	Lang  string   // code language label
	Text  string   // paragraph lines, heading text or code body
	Items []string // list items
}

const defaultLang = "text"

var (
	// The closing fence is required; an unterminated fence stays literal text.
	fencePattern   = regexp.MustCompile("```([\\w+#.-]*)[ \\t]*\\n((?s:.*?))```")
	headingPattern = regexp.MustCompile(`^(#{1,3}) (.*)$`)
	listPattern    = regexp.MustCompile(`^\s*[-*] (.*)$`)
)

// Parse splits raw markdown into blocks in source order. Fenced code is cut
// out first; every other span of text is escaped once and classified line by
// line. Contiguous list lines are grouped into a single list block.
func Parse(raw string) []Block {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var blocks []Block
	last := 0
	for _, m := range fencePattern.FindAllStringSubmatchIndex(raw, -1) {
		blocks = appendTextBlocks(blocks, raw[last:m[0]])

		lang := raw[m[2]:m[3]]
		if lang == "" {
			lang = defaultLang
		}
		body := strings.TrimSuffix(raw[m[4]:m[5]], "\n")
		blocks = append(blocks, Block{Kind: BlockCode, Lang: lang, Text: Escape(body)})
		last = m[1]
	}
	return appendTextBlocks(blocks, raw[last:])
}

func appendTextBlocks(blocks []Block, text string) []Block {
	if strings.TrimSpace(text) == "" {
		return blocks
	}
	lines := strings.Split(Escape(text), "\n")

	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		blocks = append(blocks, Block{
			Kind: BlockParagraph,
			Text: strings.TrimSpace(strings.Join(para, "\n")),
		})
		para = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: len(m[1]),
				Text:  strings.TrimRight(m[2], " \t"),
			})
			continue
		}
		if listPattern.MatchString(line) {
			flush()
			var items []string
			for ; i < len(lines); i++ {
				m := listPattern.FindStringSubmatch(lines[i])
				if m == nil {
					break
				}
				items = append(items, m[1])
			}
			i--
			blocks = append(blocks, Block{Kind: BlockList, Items: items})
			continue
		}
		para = append(para, line)
	}
	flush()
	return blocks
}
