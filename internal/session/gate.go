// Package session tracks the current user and drives the cart and
// wishlist resyncs that login, logout and session restore require.
package session

import (
	"context"
	"sync"

	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/internal/wishlist"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
)

const keySessionUser = "sessionUser"

// GateParams carries Gate dependencies.
type GateParams struct {
	Store    localstore.Store
	Cart     *cart.Engine
	Wishlist *wishlist.Mirror
	Logger   *logger.Logger
}

// Gate owns the current user id and the transitions on it.
type Gate struct {
	store    localstore.Store
	cart     *cart.Engine
	wishlist *wishlist.Mirror
	log      *logger.Logger

	mu     sync.RWMutex
	userID string
}

// NewGate validates dependencies.
func NewGate(params GateParams) (*Gate, error) {
	if params.Store == nil {
		return nil, errors.New(errors.CodeInternal, "session gate requires a local store")
	}
	if params.Cart == nil {
		return nil, errors.New(errors.CodeInternal, "session gate requires a cart engine")
	}
	if params.Wishlist == nil {
		return nil, errors.New(errors.CodeInternal, "session gate requires a wishlist mirror")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "session gate requires a logger")
	}
	return &Gate{
		store:    params.Store,
		cart:     params.Cart,
		wishlist: params.Wishlist,
		log:      params.Logger,
	}, nil
}

// CurrentUserID returns the signed-in user id, empty when anonymous.
func (g *Gate) CurrentUserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.userID
}

// Login records the user and resyncs cart and wishlist against their
// remote state. Sync warnings from the merge come back on the views, not
// as errors.
func (g *Gate) Login(ctx context.Context, userID string) (cart.View, wishlist.View, error) {
	if userID == "" {
		return cart.View{}, wishlist.View{}, errors.New(errors.CodeValidation, "login requires a user id")
	}

	g.mu.Lock()
	g.userID = userID
	g.mu.Unlock()
	if err := localstore.SetJSON(ctx, g.store, keySessionUser, userID); err != nil {
		return cart.View{}, wishlist.View{}, errors.Wrap(errors.CodeInternal, err, "persisting session")
	}

	ctx = g.log.WithUserID(ctx, userID)
	cartView, err := g.cart.Load(ctx, userID)
	if err != nil {
		return cart.View{}, wishlist.View{}, err
	}
	wishView, err := g.wishlist.Load(ctx, userID)
	if err != nil {
		return cart.View{}, wishlist.View{}, err
	}
	g.log.Info(g.log.WithComponent(ctx, "session"), "user session started")
	return cartView, wishView, nil
}

// Logout re-adds soft-deselected lines to the remote cart so nothing is
// silently lost, then drops local cart, wishlist and session state.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	userID := g.userID
	g.userID = ""
	g.mu.Unlock()

	if userID != "" {
		ctx := g.log.WithUserID(ctx, userID)
		if err := g.cart.RestoreUnchecked(ctx, userID); err != nil {
			g.log.Error(g.log.WithComponent(ctx, "session"), "restoring deselected lines on logout failed", err)
		}
	}

	if err := g.cart.Clear(ctx); err != nil {
		return err
	}
	if err := g.wishlist.Clear(ctx); err != nil {
		return err
	}
	if err := g.store.Delete(ctx, keySessionUser); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "clearing session")
	}
	g.log.Info(g.log.WithComponent(ctx, "session"), "user session ended")
	return nil
}

// Restore brings a persisted session back after a restart: reads the
// stored user id, if any, and reloads cart and wishlist for it. With no
// stored session it loads the anonymous local state.
func (g *Gate) Restore(ctx context.Context) (cart.View, wishlist.View, error) {
	var userID string
	if _, err := localstore.GetJSON(ctx, g.store, keySessionUser, &userID); err != nil {
		return cart.View{}, wishlist.View{}, errors.Wrap(errors.CodeInternal, err, "reading session")
	}

	g.mu.Lock()
	g.userID = userID
	g.mu.Unlock()

	if userID != "" {
		ctx = g.log.WithUserID(ctx, userID)
	}
	cartView, err := g.cart.Load(ctx, userID)
	if err != nil {
		return cart.View{}, wishlist.View{}, err
	}
	wishView, err := g.wishlist.Load(ctx, userID)
	if err != nil {
		return cart.View{}, wishlist.View{}, err
	}
	return cartView, wishView, nil
}
