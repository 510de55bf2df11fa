// Package text provides the low-level string splitting used by the
// tokenizer segmentation layer.
package text

import (
	"strings"
	"unicode/utf8"
)

// SplitFixed splits s into contiguous, non-overlapping chunks of at most
// maxBytes bytes each, never splitting inside a UTF-8 sequence. A single
// rune wider than maxBytes is emitted as its own oversize chunk so the
// split always makes progress. Concatenating the chunks reproduces s
// exactly. If maxBytes is 0 or negative, no splitting is performed.
func SplitFixed(s string, maxBytes int) []string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return []string{s}
	}

	var chunks []string
	start := 0
	end := 0

	for end < len(s) {
		_, size := utf8.DecodeRuneInString(s[end:])
		if end+size-start > maxBytes && end > start {
			chunks = append(chunks, s[start:end])
			start = end
		}
		end += size
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}

	return chunks
}

// Span is one piece of a marker split: either literal marker text or the
// plain text between markers.
type Span struct {
	Text   string
	Marker bool
}

// SplitMarkers splits s around literal occurrences of the given marker
// strings, keeping the markers as their own spans. At each position the
// earliest match wins; among markers matching at the same position the
// longest wins. Empty plain spans are dropped. Concatenating all span
// texts reproduces s exactly.
func SplitMarkers(s string, markers []string) []Span {
	if s == "" {
		return nil
	}
	if len(markers) == 0 {
		return []Span{{Text: s}}
	}

	var spans []Span
	rest := s

	for rest != "" {
		pos, marker := nextMarker(rest, markers)
		if pos < 0 {
			spans = append(spans, Span{Text: rest})
			break
		}
		if pos > 0 {
			spans = append(spans, Span{Text: rest[:pos]})
		}
		spans = append(spans, Span{Text: marker, Marker: true})
		rest = rest[pos+len(marker):]
	}

	return spans
}

// nextMarker finds the earliest marker occurrence in s. Returns -1 when
// none of the markers occur.
func nextMarker(s string, markers []string) (int, string) {
	best := -1
	var bestMarker string

	for _, m := range markers {
		if m == "" {
			continue
		}
		idx := strings.Index(s, m)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best || (idx == best && len(m) > len(bestMarker)) {
			best = idx
			bestMarker = m
		}
	}

	return best, bestMarker
}
