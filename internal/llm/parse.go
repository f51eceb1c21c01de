package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON decodes the first JSON object in text into dst. Models wrap
// objects in prose or markdown fences often enough that a plain Unmarshal is
// not sufficient.
func decodeJSON(text string, dst interface{}) error {
	obj := extractJSONObject(text)
	if obj == "" {
		return fmt.Errorf("no JSON object in response: %w", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, ErrMalformedOutput)
	}
	return nil
}

// extractJSONObject returns the first balanced {...} block, honouring strings
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// confidenceValue accepts numbers, numeric strings and percentages
type confidenceValue float64

func (c *confidenceValue) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*c = confidenceValue(normalizeConfidence(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return fmt.Errorf("confidence %q: %w", s, err)
	}
	if percent {
		f /= 100
	}
	*c = confidenceValue(normalizeConfidence(f))
	return nil
}

// normalizeConfidence maps 0-100 scales onto 0-1
func normalizeConfidence(f float64) float64 {
	if f > 1 && f <= 100 {
		return f / 100
	}
	return f
}
