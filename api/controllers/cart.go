package controllers

import (
	"net/http"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/api/validators"
	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/internal/session"
	"github.com/akenterprises/storefront/internal/wishlist"
	pkgerrors "github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

type addCartItemPayload struct {
	ProductID int    `json:"product_id" validate:"required,min=1"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type cartQuantityPayload struct {
	ProductID int    `json:"product_id" validate:"required,min=1"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type cartKeyPayload struct {
	ProductID int    `json:"product_id" validate:"required,min=1"`
	Size      string `json:"size"`
}

type selectAllPayload struct {
	Selected *bool `json:"selected" validate:"required"`
}

func writeCartView(w http.ResponseWriter, view cart.View) {
	if view.Warning != "" {
		responses.WriteSuccessWarning(w, view, view.Warning)
		return
	}
	responses.WriteSuccess(w, view)
}

// CartGet reloads and returns the merged cart for the current session.
func CartGet(engine *cart.Engine, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := engine.Load(r.Context(), gate.CurrentUserID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartAddItem puts a product in the cart, merging into an existing line
// with the same product and size.
func CartAddItem(engine *cart.Engine, store *catalog.Store, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemPayload
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
		view, err := engine.AddLine(r.Context(), gate.CurrentUserID(), product, payload.Size, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartSetQuantity updates a line's quantity in place; zero removes it.
func CartSetQuantity(engine *cart.Engine, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartQuantityPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := engine.SetQuantity(r.Context(), gate.CurrentUserID(),
			cart.NewLineKey(payload.ProductID, payload.Size), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartRemoveItem hard-deletes a line.
func CartRemoveItem(engine *cart.Engine, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartKeyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := engine.RemoveLine(r.Context(), gate.CurrentUserID(),
			cart.NewLineKey(payload.ProductID, payload.Size))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartToggleItem flips a line's selection. This is the one mutation that
// waits for the backend and reverts on failure.
func CartToggleItem(engine *cart.Engine, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartKeyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := engine.ToggleSelection(r.Context(), gate.CurrentUserID(),
			cart.NewLineKey(payload.ProductID, payload.Size))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartSelectAll sets every line's selection at once, all-or-nothing.
func CartSelectAll(engine *cart.Engine, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload selectAllPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := engine.SelectAll(r.Context(), gate.CurrentUserID(), *payload.Selected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartView(w, view)
	}
}

// CartMoveToWishlist puts the line's product on the wishlist, then removes
// the line from the cart. The two halves are independent: a cart-removal
// failure never undoes the wishlist addition.
func CartMoveToWishlist(engine *cart.Engine, mirror *wishlist.Mirror, store *catalog.Store, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartKeyPayload
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

		userID := gate.CurrentUserID()
		wishView, err := mirror.AddItem(r.Context(), userID, product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartView, err := engine.RemoveLine(r.Context(), userID,
			cart.NewLineKey(payload.ProductID, payload.Size))
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

// CartCount answers the badge number, preferring the backend's count for
// authenticated users so multiple devices agree.
func CartCount(engine *cart.Engine, gate *session.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := engine.RemoteCount(r.Context(), gate.CurrentUserID())
		responses.WriteSuccess(w, map[string]int{"count": count})
	}
}
