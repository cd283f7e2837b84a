package tui

import (
	"strings"
	"testing"
)

func TestRenderMarkupStripsEmphasisMarkers(t *testing.T) {
	out := renderMarkup("We present **residual learning** with *identity* shortcuts.", 80)
	if strings.Contains(out, "*") {
		t.Fatalf("emphasis markers survived: %q", out)
	}
	if !strings.Contains(out, "residual learning") {
		t.Fatalf("bold content missing: %q", out)
	}
	if !strings.Contains(out, "identity") {
		t.Fatalf("italic content missing: %q", out)
	}
}

func TestRenderMarkupHeadings(t *testing.T) {
	out := renderMarkup("## Key Findings\nDepth matters.", 80)
	if strings.Contains(out, "#") {
		t.Fatalf("heading marker survived: %q", out)
	}
	if !strings.Contains(out, "Key Findings") || !strings.Contains(out, "Depth matters.") {
		t.Fatalf("content missing: %q", out)
	}
}

func TestRenderMarkupBullets(t *testing.T) {
	out := renderMarkup("- first point\n* second point", 80)
	if !strings.Contains(out, "• first point") {
		t.Fatalf("dash bullet not rendered: %q", out)
	}
	if !strings.Contains(out, "• second point") {
		t.Fatalf("star bullet not rendered: %q", out)
	}
}

func TestRenderMarkupWrapsToWidth(t *testing.T) {
	long := strings.Repeat("residual networks ease optimization ", 10)
	out := renderMarkup(long, 40)
	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 40 {
			t.Fatalf("line exceeds width %d: %q", 40, line)
		}
	}
}

func TestRenderMarkupKeepsLineBreaks(t *testing.T) {
	out := renderMarkup("first paragraph\n\nsecond paragraph", 80)
	if !strings.Contains(out, "first paragraph\n\nsecond paragraph") {
		t.Fatalf("line breaks lost: %q", out)
	}
}
