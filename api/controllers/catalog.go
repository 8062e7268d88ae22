package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/internal/catalog"
	pkgerrors "github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

// CatalogProducts lists the catalog, optionally restricted to a category.
func CatalogProducts(store *catalog.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("categoryId"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "categoryId must be numeric"))
				return
			}
			responses.WriteSuccess(w, store.ByCategory(id))
			return
		}
		responses.WriteSuccess(w, store.Products())
	}
}

// CatalogProduct returns one product by id.
func CatalogProduct(store *catalog.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "product id must be numeric"))
			return
		}
		product, ok := store.ByID(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CatalogCategories lists the catalog groupings.
func CatalogCategories(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, store.Categories())
	}
}

// CatalogReload refetches the menu feed. The search index rebuilds on its
// next query.
func CatalogReload(store *catalog.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Load(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"version": store.Version()})
	}
}
