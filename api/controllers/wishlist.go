package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/api/validators"
	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/internal/session"
	"github.com/akenterprises/storefront/internal/wishlist"
	pkgerrors "github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

type addWishlistItemPayload struct {
	ProductID int `json:"product_id" validate:"required,min=1"`
}

type moveToCartPayload struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

// WishlistGet reloads and returns the wishlist mirror.
func WishlistGet(mirror *wishlist.Mirror, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := mirror.Load(r.Context(), gate.CurrentUserID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if view.Warning != "" {
			responses.WriteSuccessWarning(w, view, view.Warning)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WishlistAddItem puts a product on the wishlist.
func WishlistAddItem(mirror *wishlist.Mirror, store *catalog.Store, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addWishlistItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, ok := store.ByID(payload.ProductID)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		view, err := mirror.AddItem(r.Context(), gate.CurrentUserID(), product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WishlistRemoveItem takes a product off the wishlist.
func WishlistRemoveItem(mirror *wishlist.Mirror, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "product id must be numeric"))
			return
		}
		view, err := mirror.RemoveItem(r.Context(), gate.CurrentUserID(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WishlistMoveToCart adds the product to the cart, then removes it from
// the wishlist. The two halves are independent: a wishlist-removal failure
// never undoes the cart addition.
func WishlistMoveToCart(mirror *wishlist.Mirror, engine *cart.Engine, store *catalog.Store, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := strconv.Atoi(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "product id must be numeric"))
			return
		}
		var payload moveToCartPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, ok := store.ByID(productID)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		userID := gate.CurrentUserID()
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}
		cartView, err := engine.AddLine(r.Context(), userID, product, payload.Size, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wishView, err := mirror.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cart":     cartView,
			"wishlist": wishView,
		})
	}
}

// WishlistCount answers the badge number.
func WishlistCount(mirror *wishlist.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]int{"count": mirror.Count()})
	}
}
