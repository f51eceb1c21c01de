// Package extract turns HTML narrative sources into plain text. Site-specific
// adapters select the narrative body and drop page furniture; the generic
// adapter handles everything else.
package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Adapter defines the interface for site-specific text extractors
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL/content
	CanHandle(url string, contentType string) bool

	// ExtractText returns the narrative text of the document
	ExtractText(doc *html.Node) string
}

// Registry manages site adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewWikipediaAdapter())
	registry.Register(NewGutenbergAdapter())

	// Generic adapter is the fallback
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter. Adapters are tried in registration order.
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL and content type
func (r *Registry) FindAdapter(url string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url, contentType) {
			return adapter
		}
	}
	return r.generic
}

// Extract parses an HTML document and returns its narrative text along with
// the name of the adapter that produced it
func (r *Registry) Extract(url, contentType string, src io.Reader) (string, string, error) {
	doc, err := html.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	adapter := r.FindAdapter(url, contentType)
	return adapter.ExtractText(doc), adapter.Name(), nil
}

// BaseAdapter provides common node helpers for adapters
type BaseAdapter struct{}

// ExtractText returns the space-joined text under n
func (b *BaseAdapter) ExtractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := b.ExtractText(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range strings.Fields(b.GetAttribute(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// IsElement reports whether n is an element with one of the given tag names
func (b *BaseAdapter) IsElement(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// FindFirst finds the first node in document order matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
