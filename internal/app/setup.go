// Package app contains the application setup for the product service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/cache"
	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/abgdnv/productcatalog/internal/transport/rest"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "product"

type Dependencies struct {
	ProductService service.ProductService
	Auth           pkgconfig.AuthConfig
	Metrics        http.Handler
	Logger         *slog.Logger
}

// NewProductCache builds the cache selected by cfg.Driver. The returned func releases
// the Redis connection and is a no-op for the memory cache.
func NewProductCache(ctx context.Context, cfg pkgconfig.CacheConfig, logger *slog.Logger) (cache.Cache[[]service.ProductDto], func() error, error) {
	switch cfg.Driver {
	case pkgconfig.CacheDriverRedis:
		rdb, err := bootstrap.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis product cache", "addr", cfg.Redis.Addr)
		return cache.NewRedisCache[[]service.ProductDto](rdb, logger), rdb.Close, nil
	case pkgconfig.CacheDriverMemory, "":
		logger.Info("Using in-memory product cache", "capacity", cfg.Memory.Capacity, "shards", cfg.Memory.Shards)
		c := cache.NewMemoryCache[[]service.ProductDto](cfg.Memory.Capacity, cfg.Memory.Shards, service.CacheTTL)
		return c, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver: %q", cfg.Driver)
	}
}

// SetupDependencies wires the store, cache and service together.
func SetupDependencies(st store.ProductStore, c cache.Cache[[]service.ProductDto], auth pkgconfig.AuthConfig, metrics http.Handler, logger *slog.Logger) (*Dependencies, error) {
	pService, err := service.NewService(st, c, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create product service: %w", err)
	}
	return &Dependencies{
		ProductService: pService,
		Auth:           auth,
		Metrics:        metrics,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the routes and middleware of the product service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, serviceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// wireRoutes sets up the HTTP routes for the product service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux, deps.Auth)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the product service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}
