// Package service provides the implementation of product-related business logic:
// the read-through cache in front of the store and the re-read checks after writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/productcatalog/internal/cache"
	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abgdnv/productcatalog/internal/service"

// CacheTTL is how long a fetched listing is served from cache.
const CacheTTL = 300 * time.Second

// AllProductsKey is the cache key used unless both code and location are given.
const AllProductsKey = "products"

// ProductService defines the methods for managing products.
// Every method returns a product listing; see the implementation for its order.
type ProductService interface {
	// GetProducts returns the products matching code and location, served from cache when possible.
	GetProducts(ctx context.Context, productCode, location string) ([]ProductDto, error)

	// CreateProduct stores a new product and returns every product, newest first.
	CreateProduct(ctx context.Context, product ProductCreateDto) ([]ProductDto, error)

	// UpdateProduct patches the product with the given code and returns every product.
	// Returns ErrProductNotFound if the patched product cannot be read back.
	UpdateProduct(ctx context.Context, productCode string, patch ProductUpdateDto) ([]ProductDto, error)

	// DeleteProduct removes every product with the given code and returns the remaining ones.
	// Returns ErrProductNotDeleted if a product with that code survives.
	DeleteProduct(ctx context.Context, productCode string) ([]ProductDto, error)
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID                 int64  `json:"id"`
	ProductCode        string `json:"productCode"`
	ProductDescription string `json:"productDescription"`
	Location           string `json:"location"`
	Price              int64  `json:"price"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
// Price is a pointer so that an explicit 0 passes the required check.
type ProductCreateDto struct {
	ProductCode        string `json:"productCode"        validate:"required"`
	ProductDescription string `json:"productDescription" validate:"required"`
	Location           string `json:"location"           validate:"required"`
	Price              *int64 `json:"price"              validate:"required"`
}

// ProductUpdateDto represents the data transfer object for patching a product.
// Nil fields are left unchanged.
type ProductUpdateDto struct {
	Location *string `json:"location,omitempty" validate:"omitempty,min=1"`
	Price    *int64  `json:"price,omitempty"`
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	store  store.ProductStore
	cache  cache.Cache[[]ProductDto]
	logger *slog.Logger
	tracer trace.Tracer
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewService creates a new instance of ProductService. Spans and counters go
// to the globally registered OpenTelemetry providers.
func NewService(st store.ProductStore, c cache.Cache[[]ProductDto], logger *slog.Logger) (*Service, error) {
	meter := otel.Meter(instrumentationName)
	hits, err := meter.Int64Counter("product_cache_hits_total",
		metric.WithDescription("Product listings served from cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hit counter: %w", err)
	}
	misses, err := meter.Int64Counter("product_cache_misses_total",
		metric.WithDescription("Product listings read from the store"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache miss counter: %w", err)
	}
	return &Service{
		store:  st,
		cache:  c,
		logger: logger.With("component", "ProductService"),
		tracer: otel.Tracer(instrumentationName),
		hits:   hits,
		misses: misses,
	}, nil
}

// CacheKey derives the cache key of a listing. Only a fully specified
// filter gets its own key; anything else shares AllProductsKey.
func CacheKey(productCode, location string) string {
	if productCode != "" && location != "" {
		return "product_" + productCode + "_" + location
	}
	return AllProductsKey
}

// GetProducts returns the cached listing for the derived key, or reads it
// from the store ordered by id and caches it for CacheTTL.
func (s *Service) GetProducts(ctx context.Context, productCode, location string) (_ []ProductDto, err error) {
	ctx, span := s.tracer.Start(ctx, "product.GetProducts", trace.WithAttributes(
		attribute.String("product.code", productCode),
		attribute.String("product.location", location),
	))
	defer func() { endSpan(span, err) }()

	key := CacheKey(productCode, location)
	scope := attribute.String("scope", "all")
	if key != AllProductsKey {
		scope = attribute.String("scope", "scoped")
	}
	span.SetAttributes(attribute.String("cache.key", key))

	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read products from cache: %w", err)
	}
	if found && cached != nil {
		s.hits.Add(ctx, 1, metric.WithAttributes(scope))
		span.SetAttributes(attribute.Bool("cache.hit", true))
		s.logger.InfoContext(ctx, "Fetching product(s) from cache", "product_code", productCode, "location", location)
		return cached, nil
	}
	s.misses.Add(ctx, 1, metric.WithAttributes(scope))
	span.SetAttributes(attribute.Bool("cache.hit", false))

	s.logger.InfoContext(ctx, "Fetching product(s)", "product_code", productCode, "location", location)
	products, err := s.store.Find(ctx, store.Filter{ProductCode: productCode, Location: location}, store.SortAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := toDtos(products)
	if err := s.cache.Set(ctx, key, dtos, CacheTTL); err != nil {
		return nil, fmt.Errorf("failed to cache products: %w", err)
	}
	return dtos, nil
}

// CreateProduct persists the product and returns all products ordered by id descending.
func (s *Service) CreateProduct(ctx context.Context, product ProductCreateDto) (_ []ProductDto, err error) {
	ctx, span := s.tracer.Start(ctx, "product.CreateProduct", trace.WithAttributes(
		attribute.String("product.code", product.ProductCode),
	))
	defer func() { endSpan(span, err) }()

	var price int64
	if product.Price != nil {
		price = *product.Price
	}
	p := store.NewProduct(product.ProductCode, product.ProductDescription, product.Location, price)
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.InfoContext(ctx, "Product created", "product_code", p.ProductCode, "id", p.ID)

	products, err := s.store.Find(ctx, store.Filter{}, store.SortDesc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products after creation: %w", err)
	}
	return toDtos(products), nil
}

// UpdateProduct patches the rows matching productCode and the patch's location,
// then reads one of them back. A missing read-back is ErrProductNotFound no
// matter how many rows the update touched.
func (s *Service) UpdateProduct(ctx context.Context, productCode string, patch ProductUpdateDto) (_ []ProductDto, err error) {
	ctx, span := s.tracer.Start(ctx, "product.UpdateProduct", trace.WithAttributes(
		attribute.String("product.code", productCode),
	))
	defer func() { endSpan(span, err) }()

	filter := store.Filter{ProductCode: productCode}
	if patch.Location != nil {
		filter.Location = *patch.Location
	}
	affected, err := s.store.Update(ctx, filter, store.Patch{Location: patch.Location, Price: patch.Price})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with code %s: %w", productCode, err)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", affected))

	if _, err := s.store.FindOne(ctx, filter); err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to read back product with code %s: %w", productCode, err)
	}
	s.logger.InfoContext(ctx, "Product updated", "product_code", productCode, "rows_affected", affected)

	products, err := s.store.Find(ctx, store.Filter{}, store.SortAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products after update: %w", err)
	}
	return toDtos(products), nil
}

// DeleteProduct removes every row with productCode and returns the remaining
// products ordered by id ascending, failing with ErrProductNotDeleted if the
// code is still present.
func (s *Service) DeleteProduct(ctx context.Context, productCode string) (_ []ProductDto, err error) {
	ctx, span := s.tracer.Start(ctx, "product.DeleteProduct", trace.WithAttributes(
		attribute.String("product.code", productCode),
	))
	defer func() { endSpan(span, err) }()

	affected, err := s.store.Delete(ctx, store.Filter{ProductCode: productCode})
	if err != nil {
		return nil, fmt.Errorf("failed to delete product with code %s: %w", productCode, err)
	}
	s.logger.InfoContext(ctx, "Product deleted", "product_code", productCode, "rows_affected", affected)

	products, err := s.store.Find(ctx, store.Filter{}, store.SortAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products after deletion: %w", err)
	}
	for i := range products {
		if products[i].ProductCode == productCode {
			return nil, perrors.ErrProductNotDeleted
		}
	}
	return toDtos(products), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// toDtos converts store rows to DTOs. The result is never nil.
func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = toDto(&products[i])
	}
	return dtos
}

// toDto converts a store.Product to a ProductDto.
func toDto(p *store.Product) ProductDto {
	return ProductDto{
		ID:                 p.ID,
		ProductCode:        p.ProductCode,
		ProductDescription: p.ProductDescription,
		Location:           p.Location,
		Price:              p.Price,
	}
}
