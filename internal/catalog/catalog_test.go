package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

type stubMenuSource struct {
	menu backend.Menu
	err  error
}

func (s stubMenuSource) FetchMenu(context.Context) (backend.Menu, error) {
	return s.menu, s.err
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func testMenu() backend.Menu {
	rating := 4.2
	count := 150
	pct := decimal.NewFromInt(25)
	return backend.Menu{
		Categories: []backend.MenuCategory{
			{CategoryID: 1, CategoryName: "Bangles"},
			{CategoryID: 2, CategoryName: "Rings"},
		},
		Items: []backend.MenuItem{
			{
				ItemID: 1, ItemName: "Ruby Bangle", Price: decimal.NewFromInt(120),
				DiscountedPrice: decPtr(90), DiscountPercent: &pct,
				CategoryID: 1, Description: "Handmade ruby bangle",
				Rating: &rating, RatingsCount: &count, Sizes: []string{"S", "M"},
			},
			{
				ItemID: 2, ItemName: "Gold Ring", Price: decimal.NewFromInt(200),
				CategoryID: 2,
			},
		},
	}
}

func newTestStore(t *testing.T, source MenuSource) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Source: source,
		Config: config.CatalogConfig{ImageCount: 20, ImagePattern: "/bangle-%d.jpg"},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return store
}

func TestLoadJoinsCategoriesAndAssignsImages(t *testing.T) {
	store := newTestStore(t, stubMenuSource{menu: testMenu()})
	require.NoError(t, store.Load(context.Background()))

	products := store.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "Bangles", products[0].Category)
	assert.Equal(t, "/bangle-1.jpg", products[0].Image)
	assert.Equal(t, "/bangle-2.jpg", products[1].Image)
	assert.Equal(t, uint64(1), store.Version())

	p, ok := store.ByID(2)
	require.True(t, ok)
	assert.Equal(t, "Rings", p.Category)

	_, ok = store.ByID(99)
	assert.False(t, ok)
}

func TestLoadFillsMissingRatings(t *testing.T) {
	store := newTestStore(t, stubMenuSource{menu: testMenu()})
	require.NoError(t, store.Load(context.Background()))

	withFeed, _ := store.ByID(1)
	assert.Equal(t, 4.2, withFeed.Rating)
	assert.Equal(t, 150, withFeed.RatingsCount)

	filled, _ := store.ByID(2)
	assert.Greater(t, filled.Rating, 0.0)
	assert.Greater(t, filled.RatingsCount, 0)

	require.NoError(t, store.Load(context.Background()))
	again, _ := store.ByID(2)
	assert.Equal(t, filled.Rating, again.Rating)
	assert.Equal(t, filled.RatingsCount, again.RatingsCount)
}

func TestLoadFailureKeepsPreviousCatalog(t *testing.T) {
	source := &flippableSource{menu: testMenu()}
	store := newTestStore(t, source)
	require.NoError(t, store.Load(context.Background()))

	source.err = errors.New(errors.CodeDependency, "backend down")
	err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Len(t, store.Products(), 2)
	assert.Equal(t, uint64(1), store.Version())
}

type flippableSource struct {
	menu backend.Menu
	err  error
}

func (s *flippableSource) FetchMenu(context.Context) (backend.Menu, error) {
	if s.err != nil {
		return backend.Menu{}, s.err
	}
	return s.menu, nil
}

func TestEffectivePrice(t *testing.T) {
	discounted := Product{Price: decimal.NewFromInt(120), DiscountedPrice: decPtr(90)}
	assert.True(t, discounted.EffectivePrice().Equal(decimal.NewFromInt(90)))

	zero := decimal.Zero
	zeroDiscount := Product{Price: decimal.NewFromInt(120), DiscountedPrice: &zero}
	assert.True(t, zeroDiscount.EffectivePrice().Equal(decimal.NewFromInt(120)))

	plain := Product{Price: decimal.NewFromInt(120)}
	assert.True(t, plain.EffectivePrice().Equal(decimal.NewFromInt(120)))
}

func TestByCategory(t *testing.T) {
	store := newTestStore(t, stubMenuSource{menu: testMenu()})
	require.NoError(t, store.Load(context.Background()))

	bangles := store.ByCategory(1)
	require.Len(t, bangles, 1)
	assert.Equal(t, "Ruby Bangle", bangles[0].Name)
	assert.Empty(t, store.ByCategory(9))
}

func TestDerivedDiscountPercent(t *testing.T) {
	menu := backend.Menu{
		Items: []backend.MenuItem{
			{ItemID: 3, ItemName: "Silver Chain", Price: decimal.NewFromInt(100), DiscountedPrice: decPtr(80)},
		},
	}
	store := newTestStore(t, stubMenuSource{menu: menu})
	require.NoError(t, store.Load(context.Background()))

	p, ok := store.ByID(3)
	require.True(t, ok)
	assert.True(t, p.DiscountPercent.Equal(decimal.NewFromInt(20)))
}

func TestResetEmptiesStoreAndBumpsVersion(t *testing.T) {
	store := newTestStore(t, stubMenuSource{menu: testMenu()})
	require.NoError(t, store.Load(context.Background()))
	loaded := store.Version()

	store.Reset()

	assert.Empty(t, store.Products())
	assert.Empty(t, store.Categories())
	_, ok := store.ByID(1)
	assert.False(t, ok)
	assert.Greater(t, store.Version(), loaded)
}
