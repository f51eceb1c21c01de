package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// GutenbergAdapter extracts the book text from Project Gutenberg HTML editions
type GutenbergAdapter struct {
	BaseAdapter
}

// NewGutenbergAdapter creates a new Project Gutenberg adapter
func NewGutenbergAdapter() *GutenbergAdapter {
	return &GutenbergAdapter{}
}

// Name returns the adapter name
func (a *GutenbergAdapter) Name() string {
	return "gutenberg"
}

// CanHandle checks if this is a Project Gutenberg URL
func (a *GutenbergAdapter) CanHandle(rawURL string, contentType string) bool {
	return strings.Contains(strings.ToLower(rawURL), "gutenberg.org")
}

// ExtractText renders the book without the license header and footer
func (a *GutenbergAdapter) ExtractText(doc *html.Node) string {
	text := RenderText(doc, func(n *html.Node) Action {
		id := a.GetAttribute(n, "id")
		if id == "pg-header" || id == "pg-footer" || a.HasClass(n, "pg-boilerplate") {
			return Skip
		}
		return Descend
	})
	return StripGutenbergBoilerplate(text)
}

var (
	gutenbergStart = regexp.MustCompile(`(?i)\*{3}\s*START OF (THE|THIS) PROJECT GUTENBERG[^*]*\*{3}`)
	gutenbergEnd   = regexp.MustCompile(`(?i)\*{3}\s*END OF (THE|THIS) PROJECT GUTENBERG[^*]*\*{3}`)
)

// StripGutenbergBoilerplate keeps only the text between the START and END
// markers of a Project Gutenberg edition. Text without markers is returned unchanged.
func StripGutenbergBoilerplate(text string) string {
	if loc := gutenbergStart.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := gutenbergEnd.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}
