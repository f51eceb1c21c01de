package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/continuum/internal/extract"
)

// Loader reads narratives and backstories from disk or, for narratives, from http(s)
type Loader struct {
	fetcher  *Fetcher
	registry *extract.Registry
}

// NewLoader creates a loader. A nil fetcher disables URL narratives.
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{
		fetcher:  fetcher,
		registry: extract.NewRegistry(),
	}
}

// LoadNarrative returns the plain text of a narrative. HTML sources are
// reduced to their narrative body by the matching site adapter.
func (l *Loader) LoadNarrative(ctx context.Context, src string) (string, error) {
	if isURL(src) {
		if l.fetcher == nil {
			return "", fmt.Errorf("remote narratives are not enabled")
		}
		res, err := l.fetcher.FetchWithRetry(ctx, src)
		if err != nil {
			return "", err
		}
		if strings.Contains(strings.ToLower(res.ContentType), "html") || looksLikeHTML(res.Body) {
			return l.extractHTML(res.FinalURL, res.ContentType, strings.NewReader(res.Body))
		}
		return plainText(res.Body), nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read narrative: %w", err)
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".html", ".htm":
		return l.extractHTML(src, "text/html", strings.NewReader(string(data)))
	}
	return plainText(string(data)), nil
}

// LoadBackstory reads a backstory file
func (l *Loader) LoadBackstory(src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read backstory: %w", err)
	}
	return extract.NormalizeText(string(data)), nil
}

func (l *Loader) extractHTML(source, contentType string, r io.Reader) (string, error) {
	text, _, err := l.registry.Extract(source, contentType, r)
	return text, err
}

// HTMLToText extracts readable text from an HTML document with the generic adapter
func HTMLToText(r io.Reader) (string, error) {
	text, _, err := extract.NewRegistry().Extract("", "text/html", r)
	return text, err
}

// plainText normalizes a text narrative, dropping Project Gutenberg license blocks
func plainText(s string) string {
	return extract.NormalizeText(extract.StripGutenbergBoilerplate(s))
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}
