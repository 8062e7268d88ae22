package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/metrics"
)

// Sort orders accepted by Search. Anything else falls back to relevance.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortRating    = "rating"
)

const (
	relevanceWeight = 0.7
	businessWeight  = 0.3
)

// Query is a search request.
type Query struct {
	Text     string
	Category string
	Sort     string
	Page     int
	Limit    int
}

// Hit is a scored product.
type Hit struct {
	Product catalog.Product `json:"product"`
	Score   float64         `json:"score"`
}

// Page is one page of results. Total counts all matches before paging.
type Page struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// ServiceParams carries Service dependencies.
type ServiceParams struct {
	Catalog *catalog.Store
	Config  config.SearchConfig
	Metrics *metrics.SyncMetrics
}

// Service owns the inverted index and rebuilds it lazily whenever the
// catalog version moves. Queries are synchronous; callers needing rate
// limiting wrap Suggest in a Debouncer.
type Service struct {
	catalog *catalog.Store
	cfg     config.SearchConfig
	metrics *metrics.SyncMetrics

	mu      sync.Mutex
	idx     *index
	version uint64
}

// NewService validates dependencies and returns a Service with no index
// built yet.
func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, errors.New(errors.CodeInternal, "search service requires a catalog store")
	}
	return &Service{
		catalog: params.Catalog,
		cfg:     params.Config,
		metrics: params.Metrics,
	}, nil
}

// current returns the index for the catalog's current version, rebuilding
// if the catalog reloaded since the last query.
func (s *Service) current() *index {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.catalog.Version(); s.idx == nil || v != s.version {
		s.idx = buildIndex(s.catalog.Products())
		s.version = v
	}
	return s.idx
}

// Search answers a ranked catalog search. An empty query browses the
// catalog; a query that tokenizes to nothing returns no hits.
func (s *Service) Search(q Query) Page {
	start := time.Now()
	defer func() { s.metrics.ObserveSearch("search", time.Since(start)) }()

	q = s.normalize(q)
	idx := s.current()

	if strings.TrimSpace(q.Text) == "" {
		return s.browse(idx, q)
	}

	queryTokens := Tokenize(q.Text)
	if len(queryTokens) == 0 {
		return Page{Hits: []Hit{}, Page: q.Page, Limit: q.Limit}
	}

	hits := make([]Hit, 0)
	for id := range idx.candidates(queryTokens) {
		doc := idx.docs[id]
		if !matchesCategory(doc, q.Category) {
			continue
		}
		score := relevance(doc, queryTokens)*relevanceWeight + business(doc)*businessWeight
		hits = append(hits, Hit{Product: doc.product, Score: score})
	}
	s.order(idx, hits, q.Sort)
	return paginate(hits, q.Page, q.Limit)
}

// browse returns the catalog filtered by category in the requested order.
func (s *Service) browse(idx *index, q Query) Page {
	hits := make([]Hit, 0, len(idx.order))
	for _, id := range idx.order {
		doc := idx.docs[id]
		if !matchesCategory(doc, q.Category) {
			continue
		}
		hits = append(hits, Hit{Product: doc.product})
	}
	s.order(idx, hits, q.Sort)
	return paginate(hits, q.Page, q.Limit)
}

// Suggest answers autocomplete. Prefixes of length two or less match any
// indexed token prefix; longer input scores by relevance only.
func (s *Service) Suggest(text string, limit int) []Hit {
	start := time.Now()
	defer func() { s.metrics.ObserveSearch("suggest", time.Since(start)) }()

	if limit <= 0 {
		limit = s.cfg.SuggestLimit
	}
	idx := s.current()

	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return []Hit{}
	}

	var candidates map[int]struct{}
	var queryTokens []string
	if len(trimmed) <= 2 {
		candidates = idx.prefixCandidates(trimmed)
		queryTokens = []string{trimmed}
	} else {
		queryTokens = Tokenize(trimmed)
		if len(queryTokens) == 0 {
			return []Hit{}
		}
		candidates = idx.candidates(queryTokens)
	}

	hits := make([]Hit, 0, len(candidates))
	for id := range candidates {
		doc := idx.docs[id]
		hits = append(hits, Hit{Product: doc.product, Score: relevance(doc, queryTokens)})
	}
	s.order(idx, hits, SortRelevance)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (s *Service) normalize(q Query) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}
	return q
}

// order sorts hits by the requested key, with catalog insertion order as
// the deterministic tie-break.
func (s *Service) order(idx *index, hits []Hit, sortKey string) {
	rank := func(h Hit) int { return idx.docs[h.Product.ID].rank }
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch sortKey {
		case SortPriceAsc:
			if !a.Product.EffectivePrice().Equal(b.Product.EffectivePrice()) {
				return a.Product.EffectivePrice().LessThan(b.Product.EffectivePrice())
			}
		case SortPriceDesc:
			if !a.Product.EffectivePrice().Equal(b.Product.EffectivePrice()) {
				return a.Product.EffectivePrice().GreaterThan(b.Product.EffectivePrice())
			}
		case SortRating:
			if a.Product.Rating != b.Product.Rating {
				return a.Product.Rating > b.Product.Rating
			}
		default:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		return rank(a) < rank(b)
	})
}

func matchesCategory(doc document, category string) bool {
	if category == "" {
		return true
	}
	return doc.category == strings.ToLower(category)
}

func paginate(hits []Hit, page, limit int) Page {
	total := len(hits)
	from := (page - 1) * limit
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}
	return Page{Hits: hits[from:to], Total: total, Page: page, Limit: limit}
}
