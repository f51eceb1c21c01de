package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Action tells RenderText what to do with a node
type Action int

const (
	Descend Action = iota // render the node and its children
	Skip                  // drop the node and its children
	Stop                  // drop the node and everything after it
)

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true, "nav": true,
	"footer": true, "template": true, "iframe": true, "svg": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "li": true, "blockquote": true, "section": true, "article": true,
	"tr": true, "pre": true, "hr": true, "header": true, "main": true, "dd": true, "dt": true,
}

// RenderText renders the text under root. Block elements become paragraph
// breaks. filter may be nil; scripts, styles and navigation are always dropped.
func RenderText(root *html.Node, filter func(*html.Node) Action) string {
	var b strings.Builder
	stopped := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if stopped {
			return
		}
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
			if filter != nil {
				switch filter(n) {
				case Skip:
					return
				case Stop:
					stopped = true
					return
				}
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil && !stopped; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteString("\n\n")
		}
	}

	walk(root)
	return NormalizeText(b.String())
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
)

// NormalizeText collapses runs of spaces and blank lines
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = inlineSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
