package controllers

import (
	"net/http"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/api/validators"
	"github.com/akenterprises/storefront/internal/session"
	"github.com/akenterprises/storefront/pkg/logger"
)

type loginPayload struct {
	UserID string `json:"user_id" validate:"required"`
}

// SessionLogin records the user and resyncs cart and wishlist.
func SessionLogin(gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartView, wishView, err := gate.Login(r.Context(), payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"userId":   payload.UserID,
			"cart":     cartView,
			"wishlist": wishView,
		})
	}
}

// SessionLogout restores soft-deselected lines remotely, then clears
// local state.
func SessionLogout(gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := gate.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged out"})
	}
}

// SessionRestore resumes a persisted session after a restart.
func SessionRestore(gate *session.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartView, wishView, err := gate.Restore(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"userId":   gate.CurrentUserID(),
			"cart":     cartView,
			"wishlist": wishView,
		})
	}
}

// SessionCurrent reports the signed-in user, if any.
func SessionCurrent(gate *session.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"userId": gate.CurrentUserID()})
	}
}
