// Package catalog holds the in-memory product catalog built from the
// backend menu feed. It is the read-side source for browsing and for the
// search index; cart and wishlist resolve product details through it.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

// Product is a catalog entry with pricing and merchandising fields joined
// from the menu feed.
type Product struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
	CategoryID      int              `json:"categoryId"`
	Category        string           `json:"category"`
	Rating          float64          `json:"rating"`
	RatingsCount    int              `json:"ratingsCount"`
	Sizes           []string         `json:"sizes,omitempty"`
	Image           string           `json:"image"`
}

// EffectivePrice is the price a buyer actually pays: the discounted price
// when one is set and positive, the list price otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil && p.DiscountedPrice.IsPositive() {
		return *p.DiscountedPrice
	}
	return p.Price
}

// Category is a catalog grouping.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MenuSource fetches the raw menu feed.
type MenuSource interface {
	FetchMenu(ctx context.Context) (backend.Menu, error)
}

// StoreParams carries Store dependencies.
type StoreParams struct {
	Source MenuSource
	Config config.CatalogConfig
	Logger *logger.Logger
}

// Store is the loaded catalog. Load replaces the whole catalog atomically
// and bumps a version so dependents know when to rebuild.
type Store struct {
	source MenuSource
	cfg    config.CatalogConfig
	log    *logger.Logger

	mu         sync.RWMutex
	products   []Product
	byID       map[int]int
	categories []Category
	version    uint64
}

// NewStore validates dependencies and returns an empty Store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Source == nil {
		return nil, errors.New(errors.CodeInternal, "catalog store requires a menu source")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "catalog store requires a logger")
	}
	return &Store{
		source: params.Source,
		cfg:    params.Config,
		log:    params.Logger,
		byID:   map[int]int{},
	}, nil
}

// Load fetches the menu and replaces the catalog. On fetch failure the
// previous catalog is kept.
func (s *Store) Load(ctx context.Context) error {
	menu, err := s.source.FetchMenu(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "loading catalog menu")
	}

	names := make(map[int]string, len(menu.Categories))
	categories := make([]Category, 0, len(menu.Categories))
	for _, c := range menu.Categories {
		names[c.CategoryID] = c.CategoryName
		categories = append(categories, Category{ID: c.CategoryID, Name: c.CategoryName})
	}

	products := make([]Product, 0, len(menu.Items))
	byID := make(map[int]int, len(menu.Items))
	for _, item := range menu.Items {
		p := s.mapItem(item, names)
		byID[p.ID] = len(products)
		products = append(products, p)
	}

	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.categories = categories
	s.version++
	version := s.version
	s.mu.Unlock()

	ctx = s.log.WithComponent(ctx, "catalog")
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"products":   len(products),
		"categories": len(categories),
		"version":    version,
	}), "catalog loaded")
	return nil
}

func (s *Store) mapItem(item backend.MenuItem, categoryNames map[int]string) Product {
	p := Product{
		ID:              item.ItemID,
		Name:            item.ItemName,
		Description:     item.Description,
		Price:           item.Price,
		DiscountedPrice: item.DiscountedPrice,
		CategoryID:      item.CategoryID,
		Category:        categoryNames[item.CategoryID],
		Sizes:           item.Sizes,
		Image:           s.placeholderImage(item.ItemID),
	}
	if item.DiscountPercent != nil {
		p.DiscountPercent = *item.DiscountPercent
	} else if item.DiscountedPrice != nil && item.Price.IsPositive() {
		// Derive the percent when the feed only carries prices.
		p.DiscountPercent = item.Price.Sub(*item.DiscountedPrice).
			Div(item.Price).Mul(decimal.NewFromInt(100)).Round(0)
	}
	if item.Rating != nil {
		p.Rating = *item.Rating
	} else {
		p.Rating = defaultRating(item.ItemID)
	}
	if item.RatingsCount != nil {
		p.RatingsCount = *item.RatingsCount
	} else {
		p.RatingsCount = defaultRatingsCount(item.ItemID)
	}
	return p
}

// placeholderImage assigns product images by cycling through a fixed set.
func (s *Store) placeholderImage(id int) string {
	count := s.cfg.ImageCount
	if count <= 0 {
		count = 1
	}
	n := (id-1)%count + 1
	if n < 1 {
		n += count
	}
	return fmt.Sprintf(s.cfg.ImagePattern, n)
}

// The feed does not always carry review data. The stand-ins are derived
// from the product id so they are stable across reloads.
func defaultRating(id int) float64 {
	return 3.5 + float64(id%3)*0.5
}

func defaultRatingsCount(id int) int {
	return 20 + (id*37)%180
}

// Products returns the catalog in feed order.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// ByID looks a product up by id.
func (s *Store) ByID(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[idx], true
}

// ByCategory returns products in the named category, feed order preserved.
func (s *Store) ByCategory(categoryID int) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Product
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the catalog groupings.
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Version increments on every successful Load.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reset drops the loaded snapshot until the next Load. The version still
// moves so dependents rebuild.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.byID = nil
	s.categories = nil
	s.version++
}
