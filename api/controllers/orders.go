package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/api/validators"
	"github.com/akenterprises/storefront/internal/orders"
	"github.com/akenterprises/storefront/internal/session"
	pkgerrors "github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

type updateStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// OrdersPlace submits the cart's selected lines as an order.
func OrdersPlace(svc *orders.Service, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.PlaceFromCart(r.Context(), gate.CurrentUserID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrdersHistory lists the current user's orders.
func OrdersHistory(svc *orders.Service, gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.History(r.Context(), gate.CurrentUserID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrdersGet returns one order.
func OrdersGet(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be numeric"))
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersSellerPaid lists paid orders awaiting fulfillment.
func OrdersSellerPaid(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.SellerPaidOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrdersUpdateStatus moves an order through fulfillment.
func OrdersUpdateStatus(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be numeric"))
			return
		}
		var payload updateStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateStatus(r.Context(), id, payload.Status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": payload.Status})
	}
}
