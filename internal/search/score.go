package search

import (
	"math"
	"strings"
	"unicode"
)

// Relevance tiers for a query token against a product name.
const (
	scoreNameExact    = 100.0
	scoreNamePrefix   = 50.0
	scoreNameContains = 30.0
	scoreWordBoundary = 20.0
	scoreDescription  = 15.0
	scoreCategory     = 20.0
	scoreAnywhere     = 5.0
)

// relevance scores how well a document matches the query tokens. Each token
// contributes its best name tier plus field bonuses.
func relevance(doc document, queryTokens []string) float64 {
	var total float64
	for _, tok := range queryTokens {
		inName := strings.Contains(doc.name, tok)
		inDesc := strings.Contains(doc.desc, tok)
		inCategory := strings.Contains(doc.category, tok)

		switch {
		case doc.name == tok:
			total += scoreNameExact
		case strings.HasPrefix(doc.name, tok):
			total += scoreNamePrefix
		case inName:
			total += scoreNameContains
		}
		if atWordBoundary(doc.name, tok) {
			total += scoreWordBoundary
		}
		if inDesc {
			total += scoreDescription
		}
		if inCategory {
			total += scoreCategory
		}
		if inName || inDesc || inCategory {
			total += scoreAnywhere
		}
	}
	return total
}

// business scores a product's standalone appeal: ratings, review volume
// and discount depth, independent of the query.
func business(doc document) float64 {
	p := doc.product
	score := p.Rating * 10
	score += math.Min(math.Log10(float64(p.RatingsCount)+1)*5, 20)
	score += math.Min(p.DiscountPercent.InexactFloat64()*0.5, 15)
	switch {
	case p.RatingsCount > 100:
		score += 10
	case p.RatingsCount > 50:
		score += 5
	}
	return score
}

// atWordBoundary reports whether token occurs in text starting at a word
// boundary.
func atWordBoundary(text, token string) bool {
	if token == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(text[from:], token)
		if i < 0 {
			return false
		}
		at := from + i
		if at == 0 {
			return true
		}
		prev := rune(text[at-1])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		from = at + 1
	}
}
