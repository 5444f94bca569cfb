package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Query is an accepted search query. Immutable once created.
type Query struct {
	id         string
	raw        string
	normalized string
}

// NewQuery accepts raw query text and assigns a request identifier.
func NewQuery(raw string) Query {
	return Query{
		id:         uuid.NewString(),
		raw:        raw,
		normalized: NormalizeText(raw),
	}
}

// ID returns the unique request identifier.
func (q *Query) ID() string { return q.id }

// Raw returns the query text as received.
func (q *Query) Raw() string { return q.raw }

// Normalized returns the lowercased, whitespace-collapsed query text.
// Used for cache signatures and local model input.
func (q *Query) Normalized() string { return q.normalized }

// NormalizeText lowercases text, strips punctuation (keeping intra-word
// hyphens), and collapses runs of whitespace to single spaces.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
