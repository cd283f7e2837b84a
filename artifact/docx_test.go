package artifact

import (
	"archive/zip"
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const docxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Report Title</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>First paragraph </w:t></w:r>
      <w:r><w:t>split over runs.</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>   </w:t></w:r>
    </w:p>
  </w:body>
</w:document>`

func TestDocxBlocks(t *testing.T) {
	blocks, err := docxBlocks(buildDocx(t, docxFixture))
	if err != nil {
		t.Fatalf("docxBlocks: %v", err)
	}
	want := []Block{
		{Text: "Report Title", Level: 1},
		{Text: "First paragraph split over runs."},
	}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("blocks = %+v, want %+v", blocks, want)
	}
}

func TestDocxBlocks_MissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other/file.xml")
	w.Write([]byte("<x/>"))
	zw.Close()

	if _, err := docxBlocks(buf.Bytes()); err == nil {
		t.Fatal("expected an error when word/document.xml is absent")
	}
}

func TestDocxBlocks_NotAZip(t *testing.T) {
	if _, err := docxBlocks([]byte("plain bytes")); err == nil {
		t.Fatal("expected an error for a non-zip payload")
	}
}

func TestDocxBlocks_EmptyBody(t *testing.T) {
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`
	_, err := docxBlocks(buildDocx(t, xml))
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestStyleHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading3", 3},
		{"Titre2", 2},
		{"Title", 1},
		{"Subtitle", 2},
		{"BodyText", 0},
		{"", 0},
		{"Heading9", 0},
	}
	for _, tt := range tests {
		if got := styleHeadingLevel(tt.style); got != tt.want {
			t.Errorf("styleHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}
