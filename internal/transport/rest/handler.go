// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/middleware"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	msgProductNotFound   = "Product not found"
	msgProductNotDeleted = "Product not deleted"
	msgInvalidBody       = "Invalid request body"
	msgValidationFailed  = "Validation failed"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the product API with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
// Every /products route requires a valid API key; mutations are admin only.
func (h *Handler) RegisterRoutes(r chi.Router, keys config.AuthConfig) {
	r.Route("/products", func(r chi.Router) {
		r.Use(middleware.APIKey(keys, h.logger))

		r.With(middleware.RequireRoles(h.logger, middleware.RoleAdmin, middleware.RoleUser)).Get("/", h.GetProducts)

		admin := r.With(middleware.RequireRoles(h.logger, middleware.RoleAdmin))
		admin.Post("/", h.CreateProduct)
		admin.Put("/", h.UpdateProduct)
		admin.Delete("/", h.DeleteProduct)
	})

	r.Get("/healthz", h.HealthCheck)
}

// GetProducts lists products, optionally filtered by the productCode and location query parameters.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	productCode := query.Get("productCode")
	location := query.Get("location")

	h.logger.DebugContext(r.Context(), "Received request to get products", "product_code", productCode, "location", location)
	products, err := h.service.GetProducts(r.Context(), productCode, location)
	if err != nil {
		h.respondServiceError(w, r, "get products", err)
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved products", "count", len(products))
	web.RespondOK(w, h.logger, http.StatusOK, products)
}

// CreateProduct handles the creation of a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}

	products, err := h.service.CreateProduct(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, "create product", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "product_code", dto.ProductCode)
	web.RespondOK(w, h.logger, http.StatusCreated, products)
}

// UpdateProduct patches the product identified by the productCode query parameter.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productCode, ok := web.RequiredQuery(w, r, h.logger, "productCode")
	if !ok {
		return
	}
	var dto service.ProductUpdateDto
	if !h.decodeAndValidate(w, r, &dto) {
		return
	}

	products, err := h.service.UpdateProduct(r.Context(), productCode, dto)
	if err != nil {
		h.respondServiceError(w, r, "update product", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "product_code", productCode)
	web.RespondOK(w, h.logger, http.StatusOK, products)
}

// DeleteProduct removes every product with the productCode query parameter.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productCode, ok := web.RequiredQuery(w, r, h.logger, "productCode")
	if !ok {
		return
	}

	products, err := h.service.DeleteProduct(r.Context(), productCode)
	if err != nil {
		h.respondServiceError(w, r, "delete product", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "product_code", productCode)
	web.RespondOK(w, h.logger, http.StatusOK, products)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate reads a strict JSON body into dst and validates it,
// answering 400 itself when either step fails.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondNOK(w, h.logger, http.StatusBadRequest, msgInvalidBody, nil)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string, len(validationErrors))
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondNOK(w, h.logger, http.StatusBadRequest, msgValidationFailed, errorResponse)
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondNOK(w, h.logger, http.StatusBadRequest, msgInvalidBody, nil)
		return false
	}
	return true
}

// respondServiceError maps a service failure to the 500 NOK envelope.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	message := err.Error()
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		message = msgProductNotFound
	case errors.Is(err, perrors.ErrProductNotDeleted):
		message = msgProductNotDeleted
	}
	h.logger.ErrorContext(r.Context(), "Failed to "+op, "error", err)
	web.RespondNOK(w, h.logger, http.StatusInternalServerError, message, nil)
}
