// Package moderation implements the pre-persistence denylist check applied
// to all user-authored message text.
package moderation

import "strings"

// DefaultTerms is the built-in denylist. Deployments extend it through
// configuration; matching is case-insensitive substring containment.
var DefaultTerms = []string{
	"дурак",
	"идиот",
	"stupid",
	"idiot",
}

// Filter rejects text containing any configured term. It is a pure value:
// no I/O, safe for concurrent use.
type Filter struct {
	terms []string
}

// NewFilter builds a filter from the given terms; empty and duplicate
// entries are dropped, casing is ignored.
func NewFilter(terms []string) *Filter {
	seen := make(map[string]struct{}, len(terms))
	clean := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}
	return &Filter{terms: clean}
}

// Rejected reports whether text contains a denylisted term
func (f *Filter) Rejected(text string) bool {
	folded := strings.ToLower(text)
	for _, term := range f.terms {
		if strings.Contains(folded, term) {
			return true
		}
	}
	return false
}
