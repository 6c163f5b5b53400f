package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sweetshop-backend/api/controllers"
	"github.com/angelmondragon/sweetshop-backend/api/middleware"
	"github.com/angelmondragon/sweetshop-backend/internal/admins"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/catalog"
	"github.com/angelmondragon/sweetshop-backend/internal/checkout"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/sweetshop-backend/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer needs for
// idempotency, rate limiting and the readiness probe.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies is everything NewRouter mounts.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Metrics  prometheus.Gatherer
	// PubSub joins the readiness probe when checkout publishes to Pub/Sub.
	PubSub controllers.Pinger

	Catalog      catalog.Service
	Offers       offers.Service
	ActiveOffers offers.Source
	Cart         cart.Service
	Checkout     checkout.Service
	Admins       admins.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"admin_login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		probes := map[string]controllers.Pinger{"db": deps.DB, "redis": deps.Redis}
		if deps.PubSub != nil {
			probes["pubsub"] = deps.PubSub
		}
		r.Get("/ready", controllers.HealthReady(cfg, logg, probes))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ShopperSession(middleware.SessionOptions{
			CookieName: cfg.Cart.SessionCookie,
			TTL:        cfg.Cart.SessionTTL,
			Secure:     cfg.App.IsProd(),
		}, logg))
		r.Use(middleware.Idempotency(deps.Redis, cfg.Checkout.IdempotencyTTL, logg))

		r.Get("/sweets", controllers.SweetsList(deps.Catalog, logg))
		r.Get("/sweets/{sweetId}", controllers.SweetsGet(deps.Catalog, logg))
		r.Get("/offers", controllers.OffersList(deps.Offers, deps.ActiveOffers, logg))

		cartHandlers := controllers.CartHandlers{Cart: deps.Cart, Checkout: deps.Checkout, Logger: logg}
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandlers.Get())
			r.Delete("/", cartHandlers.Clear())
			r.Post("/items", cartHandlers.AddItem())
			r.Patch("/items", cartHandlers.UpdateItem())
			r.Delete("/items", cartHandlers.RemoveItem())
		})

		checkoutHandlers := controllers.CheckoutHandlers{Checkout: deps.Checkout, Logger: logg}
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandlers.Submit())
			r.Get("/quote", checkoutHandlers.Quote())
			r.With(middleware.SessionRateLimit(
				"promo_apply",
				cfg.AuthRateLimit.PromoWindow,
				cfg.AuthRateLimit.PromoSessionLimit,
				deps.Redis,
				logg,
			)).Post("/promo", checkoutHandlers.ApplyPromo())
			r.Delete("/promo", checkoutHandlers.RemovePromo())
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AdminLogin(deps.Admins, logg))
			r.Post("/refresh", controllers.AdminRefresh(deps.Admins, logg))
			r.Post("/logout", controllers.AdminLogout(deps.Admins, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireRole(logg, enums.AdminRoleOwner, enums.AdminRoleManager))
			r.Use(middleware.Idempotency(deps.Redis, 0, logg))

			ownerOnly := middleware.RequireRole(logg, enums.AdminRoleOwner)

			sweets := controllers.AdminSweetHandlers{Catalog: deps.Catalog, Logger: logg}
			r.Route("/sweets", func(r chi.Router) {
				r.Get("/", sweets.List())
				r.Post("/", sweets.Create())
				r.Get("/{sweetId}", sweets.Get())
				r.Patch("/{sweetId}", sweets.Update())
				r.With(ownerOnly).Delete("/{sweetId}", sweets.Delete())
			})

			offerHandlers := controllers.AdminOfferHandlers{Offers: deps.Offers, Logger: logg}
			r.Route("/offers", func(r chi.Router) {
				r.Get("/", offerHandlers.List())
				r.Post("/", offerHandlers.Create())
				r.Get("/{offerId}", offerHandlers.Get())
				r.Patch("/{offerId}", offerHandlers.Update())
				r.With(ownerOnly).Delete("/{offerId}", offerHandlers.Delete())
			})
		})
	})

	return r
}
