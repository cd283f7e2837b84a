package artifact

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// Page geometry and type metrics for rendered artifacts (US Letter, points).
const (
	pageWidth  = 612
	pageHeight = 792
	pageMargin = 72
	startY     = 720

	bodySize    = 11
	headingSize = 15
	bodyLead    = 14
	headingLead = 19

	bodyGap    = 6  // extra space before a paragraph
	headingGap = 10 // extra space before a heading

	bodyCols    = 85 // wrap widths in characters, sized for Helvetica
	headingCols = 58
)

// renderLine is one laid-out text line: adv is the vertical advance from the
// previous line's origin, 0 for the first line of a page.
type renderLine struct {
	text string
	head bool
	adv  int
}

// renderPDF lays the blocks out on US Letter pages and assembles a complete
// PDF document: catalog, page tree, one content stream per page, and two
// Type1 fonts (Helvetica for body, Helvetica-Bold for headings).
func renderPDF(blocks []Block) ([]byte, error) {
	pages := paginate(layout(blocks))
	if len(pages) == 0 {
		return nil, ErrNoContent
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	nPages := len(pages)
	nObjs := 2 + 2*nPages + 2
	fontBody := 3 + 2*nPages
	fontHead := fontBody + 1
	offsets := make([]int, nObjs+1)

	writeObj := func(num int, body string) {
		offsets[num] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids strings.Builder
	for i := 0; i < nPages; i++ {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 3+2*i)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), nPages))

	for i, page := range pages {
		writeObj(3+2*i, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> >>",
			pageWidth, pageHeight, 4+2*i, fontBody, fontHead))

		stream := pageStream(page)
		offsets[4+2*i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			4+2*i, len(stream), stream)
	}

	writeObj(fontBody, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj(fontHead, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", nObjs+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= nObjs; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", nObjs+1, xref)

	return b.Bytes(), nil
}

// layout wraps each block to its column width and annotates lines with their
// vertical advance.
func layout(blocks []Block) []renderLine {
	var lines []renderLine
	for _, blk := range blocks {
		text := strings.TrimSpace(blk.Text)
		if text == "" {
			continue
		}
		head := blk.Level > 0
		cols := bodyCols
		lead, gap := bodyLead, bodyGap
		if head {
			cols = headingCols
			lead, gap = headingLead, headingGap
		}
		wrapped := wordwrap.String(text, cols)
		for i, ln := range strings.Split(wrapped, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			adv := lead
			if i == 0 {
				adv += gap
			}
			lines = append(lines, renderLine{text: ln, head: head, adv: adv})
		}
	}
	return lines
}

// paginate splits lines into pages, resetting the advance of each page's
// first line.
func paginate(lines []renderLine) [][]renderLine {
	var pages [][]renderLine
	var page []renderLine
	y := startY
	for _, ln := range lines {
		if len(page) == 0 {
			ln.adv = 0
			y = startY
		} else if y-ln.adv < pageMargin {
			pages = append(pages, page)
			page = nil
			ln.adv = 0
			y = startY
		} else {
			y -= ln.adv
		}
		page = append(page, ln)
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

// pageStream builds the content stream for one page.
func pageStream(page []renderLine) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	first := true
	var curHead bool
	for _, ln := range page {
		if first || ln.head != curHead {
			if ln.head {
				fmt.Fprintf(&sb, "/F2 %d Tf\n", headingSize)
			} else {
				fmt.Fprintf(&sb, "/F1 %d Tf\n", bodySize)
			}
			curHead = ln.head
		}
		if first {
			fmt.Fprintf(&sb, "%d %d Td\n", pageMargin, startY)
			first = false
		} else {
			fmt.Fprintf(&sb, "0 -%d Td\n", ln.adv)
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escapeText(ln.text))
	}
	sb.WriteString("ET")
	return sb.String()
}

// escapeText escapes the characters with structural meaning in PDF string
// literals.
func escapeText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "(", `\(`)
	text = strings.ReplaceAll(text, ")", `\)`)
	return text
}
