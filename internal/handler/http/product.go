package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khojhub/shop-service/internal/service"
	"github.com/khojhub/shop-service/pkg/httputil"
	"github.com/khojhub/shop-service/pkg/middleware"
	"github.com/khojhub/shop-service/pkg/validator"
)

// ProductHandler handles HTTP requests for shop product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for adding a product.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"max=2000"`
	Price       int64   `json:"price" validate:"min=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url,max=500"`
}

// --- Handlers ---

// ListShopProducts handles GET /api/v1/shops/{id}/products
func (h *ProductHandler) ListShopProducts(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, shopID); !ok {
		return
	}

	page, perPage := parsePagination(r)

	products, total, err := h.service.ListShopProducts(r.Context(), shopID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, page, perPage))
}

// CreateProduct handles POST /api/v1/shops/{id}/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, shopID); !ok {
		return
	}

	ownerID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), ownerID, &service.CreateProductInput{
		ShopID:      shopID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, productID); !ok {
		return
	}

	ownerID := middleware.UserIDFromContext(r.Context())

	if err := h.service.DeleteProduct(r.Context(), productID, ownerID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
