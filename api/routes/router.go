package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akenterprises/storefront/api/controllers"
	"github.com/akenterprises/storefront/api/middleware"
	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/internal/catalog"
	"github.com/akenterprises/storefront/internal/orders"
	"github.com/akenterprises/storefront/internal/search"
	"github.com/akenterprises/storefront/internal/session"
	"github.com/akenterprises/storefront/internal/wishlist"
	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/localstore"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/notify"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store localstore.Store,
	catalogStore *catalog.Store,
	searchService *search.Service,
	cartEngine *cart.Engine,
	wishlistMirror *wishlist.Mirror,
	ordersService *orders.Service,
	gate *session.Gate,
	notices *notify.Buffer,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(catalogStore, logg))
			r.Get("/products/{id}", controllers.CatalogProduct(catalogStore, logg))
			r.Get("/categories", controllers.CatalogCategories(catalogStore))
			r.Post("/reload", controllers.CatalogReload(catalogStore, logg))
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/", controllers.Search(searchService, logg))
			r.Get("/suggest", controllers.SearchSuggest(searchService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartEngine, gate, logg))
			r.Get("/count", controllers.CartCount(cartEngine, gate))
			r.Post("/items", controllers.CartAddItem(cartEngine, catalogStore, gate, logg))
			r.Put("/items/quantity", controllers.CartSetQuantity(cartEngine, gate, logg))
			r.Delete("/items", controllers.CartRemoveItem(cartEngine, gate, logg))
			r.Post("/items/toggle", controllers.CartToggleItem(cartEngine, gate, logg))
			r.Post("/items/move-to-wishlist", controllers.CartMoveToWishlist(cartEngine, wishlistMirror, catalogStore, gate, logg))
			r.Post("/select-all", controllers.CartSelectAll(cartEngine, gate, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistGet(wishlistMirror, gate, logg))
			r.Get("/count", controllers.WishlistCount(wishlistMirror))
			r.Post("/items", controllers.WishlistAddItem(wishlistMirror, catalogStore, gate, logg))
			r.Delete("/items/{productId}", controllers.WishlistRemoveItem(wishlistMirror, gate, logg))
			r.Post("/items/{productId}/move-to-cart", controllers.WishlistMoveToCart(wishlistMirror, cartEngine, catalogStore, gate, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrdersPlace(ordersService, gate, logg))
			r.Get("/", controllers.OrdersHistory(ordersService, gate, logg))
			r.Get("/{id}", controllers.OrdersGet(ordersService, logg))
			r.Get("/seller/paid", controllers.OrdersSellerPaid(ordersService, logg))
			r.Patch("/{id}/status", controllers.OrdersUpdateStatus(ordersService, logg))
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionCurrent(gate))
			r.Post("/login", controllers.SessionLogin(gate, logg))
			r.Post("/logout", controllers.SessionLogout(gate, logg))
			r.Post("/restore", controllers.SessionRestore(gate, logg))
		})

		r.Get("/notifications", controllers.Notifications(notices))
	})

	return r
}
