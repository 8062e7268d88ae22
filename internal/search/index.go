// Package search answers ranked catalog searches and autocomplete
// suggestions from an in-memory inverted index.
package search

import (
	"strings"
	"unicode"

	"github.com/akenterprises/storefront/internal/catalog"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

// Tokenize normalizes text into index tokens: lowercase, punctuation
// stripped except hyphens, split on whitespace and hyphens, single-character
// tokens and stop words dropped.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, tok := range fields {
		if len(tok) <= 1 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// index is the inverted token map plus the per-product fields scoring needs.
type index struct {
	postings map[string][]int // token -> product ids, first-seen order
	docs     map[int]document
	order    []int // catalog insertion order, used for tie-breaks
}

// document is the lowercased scoring view of a product.
type document struct {
	name     string
	desc     string
	category string
	product  catalog.Product
	rank     int
}

func buildIndex(products []catalog.Product) *index {
	idx := &index{
		postings: map[string][]int{},
		docs:     make(map[int]document, len(products)),
		order:    make([]int, 0, len(products)),
	}
	for rank, p := range products {
		idx.docs[p.ID] = document{
			name:     strings.ToLower(p.Name),
			desc:     strings.ToLower(p.Description),
			category: strings.ToLower(p.Category),
			product:  p,
			rank:     rank,
		}
		idx.order = append(idx.order, p.ID)

		seen := map[string]struct{}{}
		for _, field := range []string{p.Name, p.Description, p.Category} {
			for _, tok := range Tokenize(field) {
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				idx.postings[tok] = append(idx.postings[tok], p.ID)
			}
		}
	}
	return idx
}

// candidates unions the posting lists of the query tokens. When no exact
// token matches, it falls back to substring matching over all indexed
// tokens.
func (idx *index) candidates(queryTokens []string) map[int]struct{} {
	out := map[int]struct{}{}
	for _, tok := range queryTokens {
		for _, id := range idx.postings[tok] {
			out[id] = struct{}{}
		}
	}
	if len(out) > 0 {
		return out
	}

	for indexed, ids := range idx.postings {
		for _, tok := range queryTokens {
			if strings.Contains(indexed, tok) || strings.Contains(tok, indexed) {
				for _, id := range ids {
					out[id] = struct{}{}
				}
				break
			}
		}
	}
	return out
}

// prefixCandidates returns products with any indexed token starting with
// the given prefix, the short-query suggestion mode.
func (idx *index) prefixCandidates(prefix string) map[int]struct{} {
	out := map[int]struct{}{}
	for indexed, ids := range idx.postings {
		if strings.HasPrefix(indexed, prefix) {
			for _, id := range ids {
				out[id] = struct{}{}
			}
		}
	}
	return out
}
