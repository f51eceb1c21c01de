package extract

import "golang.org/x/net/html"

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string, contentType string) bool {
	return true
}

// ExtractText renders the first <article> or <main>, falling back to the whole document
func (a *GenericAdapter) ExtractText(doc *html.Node) string {
	root := a.FindFirst(doc, func(n *html.Node) bool {
		return a.IsElement(n, "article", "main")
	})
	if root == nil {
		root = doc
	}
	return RenderText(root, func(n *html.Node) Action {
		if a.IsElement(n, "aside") {
			return Skip
		}
		return Descend
	})
}
