// Package wishlist keeps a local mirror of the remote wishlist. It is the
// cart engine's simpler sibling: identity is the product id alone, there
// is no quantity and no soft-deselect, and no mutation ever rolls back.
package wishlist

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/metrics"
	"github.com/akenterprises/storefront/pkg/notify"
)

const keyWishlist = "wishlist"

// Item is a wishlist entry: a product snapshot keyed by product id.
type Item struct {
	ProductID       int              `json:"productId"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Category        string           `json:"category"`
	Image           string           `json:"image"`
}

// View is the mirror's answer to callers. Warning flags a degraded load
// or a pending sync.
type View struct {
	Items   []Item `json:"items"`
	Warning string `json:"warning,omitempty"`
}

// RemoteWishlist is the slice of the backend the mirror needs.
type RemoteWishlist interface {
	FetchWishlist(ctx context.Context, userID string) ([]backend.WishlistItem, error)
	AddWishlistItem(ctx context.Context, userID string, productID int) error
	RemoveWishlistItem(ctx context.Context, userID string, productID int) error
}

// MirrorParams carries Mirror dependencies.
type MirrorParams struct {
	Store    localstore.Store
	Remote   RemoteWishlist
	Catalog  *catalog.Store
	Logger   *logger.Logger
	Metrics  *metrics.SyncMetrics
	Notifier notify.Sink
}

// Mirror owns the merged wishlist.
type Mirror struct {
	store    localstore.Store
	remote   RemoteWishlist
	catalog  *catalog.Store
	log      *logger.Logger
	metrics  *metrics.SyncMetrics
	notifier notify.Sink

	mu    sync.Mutex
	items []Item

	syncs sync.WaitGroup
}

// NewMirror validates dependencies and returns an empty Mirror.
func NewMirror(params MirrorParams) (*Mirror, error) {
	if params.Store == nil {
		return nil, errors.New(errors.CodeInternal, "wishlist mirror requires a local store")
	}
	if params.Remote == nil {
		return nil, errors.New(errors.CodeInternal, "wishlist mirror requires a remote wishlist client")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "wishlist mirror requires a logger")
	}
	if params.Notifier == nil {
		params.Notifier = notify.LoggerSink{Log: params.Logger}
	}
	return &Mirror{
		store:    params.Store,
		remote:   params.Remote,
		catalog:  params.Catalog,
		log:      params.Logger,
		metrics:  params.Metrics,
		notifier: params.Notifier,
	}, nil
}

// Load populates the mirror. With a user id the remote list is
// authoritative; a remote failure falls back to the local cache with a
// warning. Anonymous sessions load the cache directly.
func (m *Mirror) Load(ctx context.Context, userID string) (View, error) {
	var local []Item
	if _, err := localstore.GetJSON(ctx, m.store, keyWishlist, &local); err != nil {
		return View{}, errors.Wrap(errors.CodeInternal, err, "reading wishlist cache")
	}

	var warning string
	items := local
	if userID != "" {
		remote, err := m.remote.FetchWishlist(ctx, userID)
		if err != nil {
			m.metrics.IncSyncFailure("wishlist.load")
			m.log.Warn(m.log.WithComponent(ctx, "wishlist"), "remote wishlist unavailable, using local state")
			warning = "wishlist service unavailable; showing your locally saved wishlist"
		} else {
			m.metrics.IncSyncSuccess("wishlist.load")
			items = m.fromRemote(remote)
			if err := localstore.SetJSON(ctx, m.store, keyWishlist, items); err != nil {
				return View{}, errors.Wrap(errors.CodeInternal, err, "persisting wishlist")
			}
		}
	}

	m.mu.Lock()
	m.items = dedupe(items)
	view := m.viewLocked()
	m.mu.Unlock()
	view.Warning = warning
	return view, nil
}

func (m *Mirror) fromRemote(rows []backend.WishlistItem) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item := Item{
			ProductID: row.ProductID,
			Name:      row.ItemName,
			Price:     row.Price,
			Category:  row.Category,
		}
		if m.catalog != nil {
			if p, ok := m.catalog.ByID(row.ProductID); ok {
				item.Image = p.Image
				item.DiscountedPrice = p.DiscountedPrice
			}
		}
		items = append(items, item)
	}
	return items
}

// AddItem puts a product on the wishlist. Re-adding is a no-op. The
// remote add runs in the background; local state stands on failure.
func (m *Mirror) AddItem(ctx context.Context, userID string, product catalog.Product) (View, error) {
	m.mu.Lock()
	if !m.presentLocked(product.ID) {
		m.items = append(m.items, Item{
			ProductID:       product.ID,
			Name:            product.Name,
			Price:           product.Price,
			DiscountedPrice: product.DiscountedPrice,
			Category:        product.Category,
			Image:           product.Image,
		})
	}
	view, err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return view, err
	}

	if userID != "" {
		m.syncAsync(ctx, "wishlist.add", func(ctx context.Context) error {
			return m.remote.AddWishlistItem(ctx, userID, product.ID)
		})
	}
	return view, nil
}

// RemoveItem takes a product off the wishlist. Also the second half of
// "move to cart"; a failed remote removal never undoes the cart addition
// that already happened, the two operations are independent.
func (m *Mirror) RemoveItem(ctx context.Context, userID string, productID int) (View, error) {
	m.mu.Lock()
	kept := m.items[:0]
	removed := false
	for _, item := range m.items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	view, err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return view, err
	}

	if removed && userID != "" {
		m.syncAsync(ctx, "wishlist.remove", func(ctx context.Context) error {
			return m.remote.RemoveWishlistItem(ctx, userID, productID)
		})
	}
	return view, nil
}

// Contains answers from memory only; no I/O.
func (m *Mirror) Contains(productID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presentLocked(productID)
}

// Current returns the mirrored wishlist.
func (m *Mirror) Current() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Count is the badge number.
func (m *Mirror) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear wipes the wishlist locally and in memory.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	_, err := m.persistLocked(ctx)
	return err
}

// Reset drops in-memory state without touching persistence.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
}

// Wait blocks until all background syncs have settled.
func (m *Mirror) Wait() {
	m.syncs.Wait()
}

func (m *Mirror) syncAsync(ctx context.Context, op string, call func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	m.syncs.Add(1)
	go func() {
		defer m.syncs.Done()
		if err := call(detached); err != nil {
			m.metrics.IncSyncFailure(op)
			m.log.Error(m.log.WithComponent(detached, "wishlist"), "background wishlist sync failed", err)
			m.notifier.Push(detached, notify.Error("wishlist", "saved locally; syncing your wishlist failed"))
			return
		}
		m.metrics.IncSyncSuccess(op)
	}()
}

func (m *Mirror) presentLocked(productID int) bool {
	for _, item := range m.items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func (m *Mirror) viewLocked() View {
	return View{Items: append([]Item(nil), m.items...)}
}

func (m *Mirror) persistLocked(ctx context.Context) (View, error) {
	if err := localstore.SetJSON(ctx, m.store, keyWishlist, m.items); err != nil {
		return m.viewLocked(), errors.Wrap(errors.CodeInternal, err, "persisting wishlist")
	}
	return m.viewLocked(), nil
}

func dedupe(items []Item) []Item {
	seen := map[int]struct{}{}
	out := items[:0]
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out = append(out, item)
	}
	return out
}
