// internal/suggest/match.go
//
// Model suggestion matching for the autocomplete box.
// The query is literal text: it is never compiled into a pattern, so
// characters such as "(", "*" or "." match themselves.

package suggest

import (
	"strings"

	"golang.org/x/text/cases"
)

// MaxRawMatches caps how many titles are collected before deduplication.
const MaxRawMatches = 20

// Match returns up to MaxRawMatches titles that contain query
// (case-insensitive, anywhere in the title), deduplicated in first-seen
// order. An empty or blank query returns an empty, non-nil slice.
func Match(titles []string, query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return []string{}
	}
	fq := cases.Fold().String(q)

	raw := make([]string, 0, MaxRawMatches)
	for _, t := range titles {
		if strings.Contains(cases.Fold().String(t), fq) {
			raw = append(raw, t)
			if len(raw) == MaxRawMatches {
				break
			}
		}
	}
	return Dedupe(raw)
}

// Dedupe removes repeated titles by exact text, keeping first-seen order.
func Dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
