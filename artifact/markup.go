package artifact

import (
	"strings"
	"unicode"
)

// Block is a logical unit of rendered content: a heading or a paragraph.
type Block struct {
	Text  string
	Level int // heading level 1-6, 0 for body text
}

// parseMarkup splits markdown-style text into heading and paragraph blocks.
// ATX headings ("# ...") become heading blocks; runs of non-blank lines
// collapse into single paragraphs; blank lines separate paragraphs.
func parseMarkup(text string) []Block {
	var blocks []Block
	var current strings.Builder

	flush := func() {
		p := strings.TrimSpace(current.String())
		if p != "" {
			blocks = append(blocks, Block{Text: p})
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			flush()

			level := 0
			for _, ch := range trimmed {
				if ch != '#' {
					break
				}
				level++
			}
			if level > 6 {
				level = 6
			}

			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			heading = strings.TrimSpace(strings.TrimRight(heading, "#"))
			if heading != "" {
				blocks = append(blocks, Block{Text: heading, Level: level})
			}
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(trimmed)
	}
	flush()

	return blocks
}

// collapseSpaces normalizes all whitespace runs in text to single spaces.
func collapseSpaces(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
