package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/geo"
	"github.com/khojhub/shop-service/internal/service"
	"github.com/khojhub/shop-service/pkg/httputil"
	"github.com/khojhub/shop-service/pkg/middleware"
	"github.com/khojhub/shop-service/pkg/validator"
)

// ShopHandler handles HTTP requests for shop directory and discovery endpoints.
type ShopHandler struct {
	shops     *service.ShopService
	discovery *service.DiscoveryService
	logger    *slog.Logger
}

// NewShopHandler creates a new shop HTTP handler.
func NewShopHandler(shops *service.ShopService, discovery *service.DiscoveryService, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{
		shops:     shops,
		discovery: discovery,
		logger:    logger,
	}
}

// --- Request DTOs ---

// CreateShopRequest is the JSON request body for registering a shop.
type CreateShopRequest struct {
	Name          string               `json:"name" validate:"required,min=1,max=255"`
	Description   string               `json:"description" validate:"max=2000"`
	CategoryID    *string              `json:"category_id" validate:"omitempty,uuid"`
	Longitude     float64              `json:"longitude"`
	Latitude      float64              `json:"latitude"`
	Address       domain.Address       `json:"address"`
	Contact       domain.Contact       `json:"contact"`
	BusinessHours domain.BusinessHours `json:"business_hours"`
}

// UpdateShopRequest is the JSON request body for partially updating a shop.
// Absent fields are left unchanged; location and category cannot be changed.
type UpdateShopRequest struct {
	Name          *string               `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string               `json:"description" validate:"omitempty,max=2000"`
	Address       *domain.Address       `json:"address"`
	Contact       *domain.Contact       `json:"contact"`
	BusinessHours *domain.BusinessHours `json:"business_hours"`
	LogoURL       *string               `json:"logo_url" validate:"omitempty,url,max=500"`
}

// --- Handlers ---

// Search handles GET /api/v1/shops
// @Summary Search shops
// @Description Proximity search over active shops with category and rating filters
// @Tags shops
// @Produce json
// @Param lat query number false "Center latitude"
// @Param lng query number false "Center longitude"
// @Param radius_km query number false "Search radius in kilometers" default(10)
// @Param category_id query string false "Category UUID"
// @Param min_rating query number false "Minimum average rating (0-5)"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/shops [get]
func (h *ShopHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.discovery.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data":        result.Shops,
		"total_count": result.TotalCount,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GetShop handles GET /api/v1/shops/{id}
// @Summary Get shop detail
// @Description Returns an active shop with its products and a page of reviews
// @Tags shops
// @Produce json
// @Param id path string true "Shop UUID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/shops/{id} [get]
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	page, perPage := parsePagination(r)

	detail, err := h.shops.GetShopDetail(r.Context(), id, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// CreateShop handles POST /api/v1/shops
func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateShopRequest
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

	shop, err := h.shops.CreateShop(r.Context(), ownerID, &service.CreateShopInput{
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Longitude:     req.Longitude,
		Latitude:      req.Latitude,
		Address:       req.Address,
		Contact:       req.Contact,
		BusinessHours: req.BusinessHours,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: shop})
}

// UpdateShop handles PUT /api/v1/shops/{id}
func (h *ShopHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	ownerID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateShopRequest
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

	shop, err := h.shops.UpdateShop(r.Context(), id, ownerID, &service.UpdateShopInput{
		Name:          req.Name,
		Description:   req.Description,
		Address:       req.Address,
		Contact:       req.Contact,
		BusinessHours: req.BusinessHours,
		LogoURL:       req.LogoURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shop})
}

// DeleteShop handles DELETE /api/v1/shops/{id}
func (h *ShopHandler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	ownerID := middleware.UserIDFromContext(r.Context())

	if err := h.shops.DeleteShop(r.Context(), id, ownerID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyShops handles GET /api/v1/my/shops
func (h *ShopHandler) ListMyShops(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserIDFromContext(r.Context())
	page, perPage := parsePagination(r)

	shops, total, err := h.shops.ListMyShops(r.Context(), ownerID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(shops, total, page, perPage))
}

// parseSearchQuery reads the discovery filter parameters. A center requires
// both lat and lng; radius without a center is rejected.
func parseSearchQuery(r *http.Request) (service.SearchQuery, error) {
	q := r.URL.Query()
	query := service.SearchQuery{}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr != "" || lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return query, invalidParam("lat")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return query, invalidParam("lng")
		}
		query.Center = &geo.Point{Longitude: lng, Latitude: lat}
	}

	if v := q.Get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return query, invalidParam("radius_km")
		}
		if query.Center == nil {
			return query, invalidParam("radius_km requires lat and lng")
		}
		// A zero RadiusKm downstream means "not supplied", so an explicit
		// zero must be rejected here rather than coerced to the default.
		if radius <= 0 {
			return query, invalidParam("radius_km must be positive")
		}
		query.RadiusKm = radius
	}

	if v := q.Get("category_id"); v != "" {
		query.CategoryID = &v
	}

	if v := q.Get("min_rating"); v != "" {
		minRating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return query, invalidParam("min_rating")
		}
		query.MinRating = minRating
	}

	query.Page, query.PerPage = parsePagination(r)

	return query, nil
}
