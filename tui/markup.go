package tui

import (
	"regexp"
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

var (
	strongMarker   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emphasisMarker = regexp.MustCompile(`\*(.+?)\*`)
)

// renderMarkup applies the minimal transform summaries need: heading lines,
// list bullets, bold and italic markers, preserved line breaks. Everything
// else passes through verbatim, wrapped to width.
func renderMarkup(text string, width int) string {
	if width < 20 {
		width = 20
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			content := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, headingStyle.Render(content))
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			out = append(out, "• "+emphasize(strings.TrimSpace(trimmed[2:])))
		default:
			out = append(out, emphasize(line))
		}
	}
	return wordwrap.String(strings.Join(out, "\n"), width)
}

// emphasize resolves inline markers. Bold runs first so the double markers
// are consumed before the single-marker pass.
func emphasize(s string) string {
	s = strongMarker.ReplaceAllString(s, strongStyle.Render("$1"))
	s = emphasisMarker.ReplaceAllString(s, emphasisStyle.Render("$1"))
	return s
}
