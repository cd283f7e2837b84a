// Package fingerprint derives the deduplication key for a document: the text
// of the first page, truncated to its first 48 runes, with all whitespace
// stripped and the remainder lowercased.
//
// The result is a heuristic fingerprint, not a cryptographic digest — two
// documents sharing an identical opening passage produce the same key. Only
// the first page is read, so the cost does not grow with document length.
package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PrefixRunes is how much of the first page's text feeds the fingerprint.
const PrefixRunes = 48

// ErrNoText is returned when the first page contains no extractable text.
var ErrNoText = errors.New("fingerprint: no text on first page")

// FromPDF computes the fingerprint of a PDF document held in memory.
// The payload must be a well-formed PDF; malformed input is an error, which
// callers decide how to degrade (the upload flow treats it per its dedup
// failure policy).
func FromPDF(data []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("fingerprint: read pdf: %w", err)
	}
	if ctx.PageCount == 0 {
		return "", ErrNoText
	}

	text := firstPageText(ctx)
	fp := Normalize(text)
	if fp == "" {
		return "", ErrNoText
	}
	return fp, nil
}

// Normalize reduces extracted page text to the canonical fingerprint form:
// first PrefixRunes runes, then all whitespace removed, then lowercased.
// Truncation happens before stripping, so fingerprints of whitespace-heavy
// openings come out shorter than PrefixRunes.
func Normalize(text string) string {
	runes := []rune(text)
	if len(runes) > PrefixRunes {
		runes = runes[:PrefixRunes]
	}
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// firstPageText concatenates the string literals shown by the first page's
// content stream. Text runs are joined without separators; positioning
// operators contribute nothing.
func firstPageText(ctx *model.Context) string {
	r, err := pdfcpu.ExtractPageContent(ctx, 1)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textRuns(data)
}

// literalRe matches PDF string literals in parentheses: (text here)
var literalRe = regexp.MustCompile(`\(([^)]*)\)`)

// textRuns collects the arguments of the text-showing operators Tj, TJ and '
// from a content stream, in stream order.
func textRuns(stream []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(stream, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		show := bytes.HasSuffix(line, []byte("Tj")) ||
			bytes.HasSuffix(line, []byte("TJ")) ||
			(bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")))
		if !show {
			continue
		}
		for _, m := range literalRe.FindAllSubmatch(line, -1) {
			b.WriteString(decodeLiteral(m[1]))
		}
	}
	return b.String()
}

// decodeLiteral resolves PDF string escape sequences, including up to
// three-digit octal codes.
func decodeLiteral(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			b.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '(', ')':
			b.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				b.WriteByte(byte(val))
			} else {
				b.WriteByte(raw[i])
			}
		}
	}
	return b.String()
}
