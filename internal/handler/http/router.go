package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khojhub/shop-service/internal/auth"
	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/service"
	"github.com/khojhub/shop-service/pkg/health"
	"github.com/khojhub/shop-service/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP router.
type RouterConfig struct {
	Shops       *service.ShopService
	Discovery   *service.DiscoveryService
	Reviews     *service.ReviewService
	Products    *service.ProductService
	Categories  *service.CategoryService
	Verifier    *auth.Verifier
	Health      *health.Handler
	Logger      *slog.Logger
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
	ServiceName string
}

// NewRouter creates a chi router with all shop service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	// Token validator that bridges to the JWT verifier.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := cfg.Verifier.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	shopHandler := NewShopHandler(cfg.Shops, cfg.Discovery, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.Logger)
	productHandler := NewProductHandler(cfg.Products, cfg.Logger)
	categoryHandler := NewCategoryHandler(cfg.Categories, cfg.Logger)

	// Public discovery and directory endpoints
	r.Route("/api/v1/shops", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", shopHandler.Search)
		r.Get("/{id}", shopHandler.GetShop)
		r.Get("/{id}/reviews", reviewHandler.ListShopReviews)
		r.Get("/{id}/products", productHandler.ListShopProducts)

		// Authenticated shop management
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Post("/", shopHandler.CreateShop)
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Put("/{id}", shopHandler.UpdateShop)
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Delete("/{id}", shopHandler.DeleteShop)
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Post("/{id}/products", productHandler.CreateProduct)

			r.Post("/{id}/reviews", reviewHandler.CreateReview)
		})
	})

	// Authenticated review management
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/{id}/response", reviewHandler.Respond)
		r.Delete("/{id}", reviewHandler.DeleteReview)
	})

	// Authenticated product management
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin))

		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	// Caller's own shops and reviews
	r.Route("/api/v1/my", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/shops", shopHandler.ListMyShops)
		r.Get("/reviews", reviewHandler.ListMyReviews)
	})

	// Categories: public listing, admin creation
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Category reference data changes rarely, let clients cache it.
		r.With(middleware.CacheControl(300)).Get("/", categoryHandler.ListCategories)

		r.With(middleware.Auth(tokenValidator), middleware.RequireRole(domain.RoleAdmin)).
			Post("/", categoryHandler.CreateCategory)
	})

	return r
}
