package controllers

import (
	"errors"
	"net/http"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/pkg/config"
	pkgerrors "github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, store localstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		if store != nil {
			if _, err := store.Get(r.Context(), "ready-probe"); err != nil && !errors.Is(err, localstore.ErrNotFound) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "local store unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
