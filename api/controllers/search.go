package controllers

import (
	"net/http"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/api/validators"
	"github.com/akenterprises/storefront/internal/search"
	"github.com/akenterprises/storefront/pkg/logger"
)

// Search answers ranked catalog queries. An empty q browses the catalog;
// whitespace-only or stop-word-only input deliberately returns nothing.
func Search(svc *search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := svc.Search(search.Query{
			Text:     r.URL.Query().Get("q"),
			Category: r.URL.Query().Get("category"),
			Sort:     r.URL.Query().Get("sort"),
			Page:     page,
			Limit:    limit,
		})
		responses.WriteSuccess(w, result)
	}
}

// SearchSuggest answers autocomplete lookups.
func SearchSuggest(svc *search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Suggest(r.URL.Query().Get("q"), limit))
	}
}
