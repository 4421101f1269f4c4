// Package suggest proposes a known vehicle name when a query matched nothing.
package suggest

import (
	"context"
	"strings"

	"transmission-api/internal/catalog"
	"transmission-api/internal/query"
)

// SpellCorrector maps free text onto one of the known names. match is always
// an element of known when ok is true.
type SpellCorrector interface {
	Correct(ctx context.Context, text string, known []string) (match string, ok bool, err error)
}

// KnownNames returns the distinct "<make> <model>" names in first-seen order,
// compared without regard to case.
func KnownNames(records []catalog.Record) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records)/4)
	for _, r := range records {
		name := r.Name()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// lookupKnown returns the canonical spelling of candidate in known.
func lookupKnown(candidate string, known []string) (string, bool) {
	candidate = query.Fold(candidate)
	if candidate == "" {
		return "", false
	}
	for _, name := range known {
		if query.Fold(name) == candidate {
			return name, true
		}
	}
	return "", false
}
