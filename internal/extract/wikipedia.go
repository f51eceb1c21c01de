package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// WikipediaAdapter extracts article prose from Wikipedia pages
type WikipediaAdapter struct {
	BaseAdapter
	skipClasses   []string
	trailingHeads map[string]bool
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{
		skipClasses: []string{
			"infobox", "navbox", "sidebar", "reference", "reflist", "references",
			"mw-editsection", "hatnote", "thumb", "metadata", "toc", "mw-empty-elt",
		},
		trailingHeads: map[string]bool{
			"see also": true, "notes": true, "references": true,
			"external links": true, "further reading": true, "bibliography": true,
		},
	}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(rawURL string, contentType string) bool {
	return strings.Contains(strings.ToLower(rawURL), "wikipedia.org")
}

// ExtractText renders the article body up to the first trailing section
// (See also, References, ...), without infoboxes, citations or edit links
func (a *WikipediaAdapter) ExtractText(doc *html.Node) string {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return a.IsElement(n, "div") &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content == nil {
		content = doc
	}

	return RenderText(content, func(n *html.Node) Action {
		if a.IsElement(n, "h2") && a.trailingHeads[strings.ToLower(a.ExtractText(n))] {
			return Stop
		}
		if a.IsElement(n, "table", "figure") {
			return Skip
		}
		for _, class := range a.skipClasses {
			if a.HasClass(n, class) {
				return Skip
			}
		}
		return Descend
	})
}
