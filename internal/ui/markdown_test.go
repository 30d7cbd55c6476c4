package ui

import (
	"strings"
	"testing"
)

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("  \n", 80); got != "" {
		t.Errorf("RenderMarkdown(blank) = %q, want empty", got)
	}
}

func TestRenderMarkdownCachesByWidth(t *testing.T) {
	a, err := getRenderer(42)
	if err != nil {
		t.Fatalf("getRenderer: %v", err)
	}
	b, _ := getRenderer(42)
	if a != b {
		t.Error("renderer for the same width should be reused")
	}

	out := RenderMarkdown("```go\nfmt.Println(1)\n```", 42)
	if !strings.Contains(out, "Println") {
		t.Errorf("code block lost: %q", out)
	}
}
