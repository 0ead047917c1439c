// CLAUDE:SUMMARY HTML decision pages to clean markdown content: sanitize, convert, pull the title.
// Package ingest turns raw source documents (court HTML pages, published
// PDFs) into record content for the pipeline. Per-source fetching stays
// outside; this package only normalizes what connectors hand over.
package ingest

import (
	"bytes"
	"errors"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrEmptyDocument means the input produced no usable text.
var ErrEmptyDocument = errors.New("ingest: document has no text content")

// HTML converts court decision pages into title + markdown body.
// Safe for concurrent use.
type HTML struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

// NewHTML builds a converter with a UGC sanitation policy; scripts,
// styles, and event handlers never reach the markdown stage.
func NewHTML() *HTML {
	return &HTML{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert returns the page title and the body as markdown. sourceURL
// resolves relative links in the markdown output.
func (h *HTML) Convert(raw []byte, sourceURL string) (title, markdown string, err error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", "", err
	}
	title = findTitle(doc)

	clean := h.policy.SanitizeBytes(raw)
	markdown, err = h.conv.ConvertString(string(clean), converter.WithDomain(sourceURL))
	if err != nil {
		return "", "", err
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", "", ErrEmptyDocument
	}
	if title == "" {
		title = firstLine(markdown)
	}
	return title, markdown, nil
}

// findTitle extracts the first <title> text from the parsed document.
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

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return ""
}
