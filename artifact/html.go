package artifact

import (
	"bytes"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlToMarkup converts an HTML document to markdown. The document title is
// read before sanitization (the UGC policy strips <head>) and prepended as a
// level-1 heading when the converted body does not already start with one.
func htmlToMarkup(data []byte) (string, error) {
	title := htmlTitle(data)

	clean := bluemonday.UGCPolicy().SanitizeBytes(data)

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	markup, err := conv.ConvertString(string(clean))
	if err != nil {
		return "", err
	}
	markup = strings.TrimSpace(markup)
	if markup == "" {
		return "", ErrNoContent
	}

	if title != "" && !strings.HasPrefix(markup, "#") {
		markup = "# " + title + "\n\n" + markup
	}
	return markup, nil
}

// htmlTitle extracts the <title> text from a raw HTML document, or "".
func htmlTitle(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
