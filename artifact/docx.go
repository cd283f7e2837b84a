package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// docxBlocks parses a .docx payload by reading word/document.xml from the
// ZIP archive. Styled paragraphs (Heading1..6, Title, Subtitle) become
// heading blocks; everything else becomes body paragraphs.
func docxBlocks(data []byte) ([]Block, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var blocks []Block
	var current strings.Builder
	var inParagraph bool
	var style string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			}

		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := collapseSpaces(current.String())
				if text == "" {
					continue
				}
				blocks = append(blocks, Block{Text: text, Level: styleHeadingLevel(style)})
			}
		}
	}

	if len(blocks) == 0 {
		return nil, ErrNoContent
	}
	return blocks, nil
}

// styleHeadingLevel maps a Word paragraph style to a heading level.
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2; 0 means body text.
func styleHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
