package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storefronthq/storefront-backend/api/controllers"
	"github.com/storefronthq/storefront-backend/api/middleware"
	"github.com/storefronthq/storefront-backend/internal/accounts"
	"github.com/storefronthq/storefront-backend/internal/admin"
	"github.com/storefronthq/storefront-backend/internal/catalog"
	"github.com/storefronthq/storefront-backend/internal/orders"
	"github.com/storefronthq/storefront-backend/internal/uploads"
	"github.com/storefronthq/storefront-backend/pkg/config"
	"github.com/storefronthq/storefront-backend/pkg/db"
	"github.com/storefronthq/storefront-backend/pkg/enums"
	"github.com/storefronthq/storefront-backend/pkg/logger"
	"github.com/storefronthq/storefront-backend/pkg/metrics"
	pkgredis "github.com/storefronthq/storefront-backend/pkg/redis"
)

// Dependencies carries everything the router needs wired in from main.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *pkgredis.Client
	Metrics  *metrics.HTTPMetrics
	Registry *prometheus.Registry

	Accounts accounts.Service
	Catalog  catalog.Service
	Orders   orders.Service
	Admin    admin.Service
	Uploads  *uploads.Service
}

// New assembles the full HTTP surface.
func New(deps Dependencies) chi.Router {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS())

	// Nil clients must not leak into interface parameters as typed
	// non-nil values.
	var dbPinger db.Pinger
	if deps.DB != nil {
		dbPinger = deps.DB
	}
	var cachePinger pkgredis.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	if deps.Redis != nil {
		cachePinger = deps.Redis
		idempotencyStore = deps.Redis
		limiterStore = deps.Redis
	}

	r.Get("/health/live", controllers.LivenessHandler())
	r.Get("/health/ready", controllers.ReadinessHandler(dbPinger, cachePinger, logg))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/uploads/{filename}", controllers.ServeUploadHandler(deps.Uploads, logg))

	loginLimit := middleware.AuthRateLimit(
		middleware.NewAuthRateLimitPolicy("login",
			cfg.AuthRateLimit.LoginWindow,
			cfg.AuthRateLimit.LoginIPLimit,
			cfg.AuthRateLimit.LoginIdentityLimit),
		limiterStore, logg)
	registerLimit := middleware.AuthRateLimit(
		middleware.NewAuthRateLimitPolicy("register",
			cfg.AuthRateLimit.RegisterWindow,
			cfg.AuthRateLimit.RegisterIPLimit,
			0),
		limiterStore, logg)

	r.Route("/api", func(r chi.Router) {
		// Public catalog surface.
		r.Get("/products", controllers.ListProductsHandler(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetailHandler(deps.Catalog, logg))
		r.Get("/categories", controllers.CategoriesHandler(deps.Catalog, logg))

		// Credential exchange.
		r.With(registerLimit).Post("/user/register", controllers.UserRegisterHandler(deps.Accounts, logg))
		r.With(loginLimit).Post("/user/login", controllers.UserLoginHandler(deps.Accounts, logg))
		r.With(loginLimit).Post("/admin/login", controllers.AdminLoginHandler(deps.Accounts, logg))

		// Shopper surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Accounts, logg))
			r.Use(middleware.RequirePrincipal(enums.PrincipalKindUser, logg))

			r.Get("/user/profile", controllers.UserProfileHandler(deps.Accounts, logg))
			r.Get("/user/orders", controllers.UserOrdersHandler(deps.Orders, logg))
			r.Get("/user/orders/{orderId}", controllers.UserOrderDetailHandler(deps.Orders, logg))
			r.With(middleware.Idempotency(idempotencyStore, logg)).
				Post("/orders", controllers.PlaceOrderHandler(deps.Orders, logg))
		})

		// Back office. Every route requires an admin principal; the group
		// keeps /admin/login (above) outside the auth chain.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Accounts, logg))
			r.Use(middleware.RequirePrincipal(enums.PrincipalKindAdmin, logg))

			r.Get("/admin/products", controllers.AdminListProductsHandler(deps.Catalog, logg))
			r.Post("/admin/products", controllers.AdminCreateProductHandler(deps.Admin, deps.Uploads, cfg.Uploads, logg))
			r.Put("/admin/products/{productId}", controllers.AdminUpdateProductHandler(deps.Admin, logg))
			r.Delete("/admin/products/{productId}", controllers.AdminDeleteProductHandler(deps.Admin, logg))

			r.Get("/admin/orders", controllers.AdminListOrdersHandler(deps.Admin, logg))
			r.Get("/admin/orders/{orderId}", controllers.AdminOrderDetailHandler(deps.Admin, logg))
			r.Put("/admin/order/update", controllers.AdminUpdateOrderStatusHandler(deps.Admin, logg))

			r.Get("/admin/dashboard/stats", controllers.AdminDashboardStatsHandler(deps.Admin, logg))
		})
	})

	return r
}
