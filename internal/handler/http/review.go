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

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// RespondRequest is the JSON request body for the shop owner's response.
type RespondRequest struct {
	Response string `json:"response" validate:"required,min=1,max=2000"`
}

// --- Handlers ---

// ListShopReviews handles GET /api/v1/shops/{id}/reviews
// @Summary List shop reviews
// @Description Returns paginated active reviews for an active shop, newest first
// @Tags reviews
// @Produce json
// @Param id path string true "Shop UUID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/shops/{id}/reviews [get]
func (h *ReviewHandler) ListShopReviews(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, shopID); !ok {
		return
	}

	page, perPage := parsePagination(r)

	reviews, total, err := h.service.ListShopReviews(r.Context(), shopID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, page, perPage))
}

// CreateReview handles POST /api/v1/shops/{id}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, shopID); !ok {
		return
	}

	authorID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
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

	review, err := h.service.CreateReview(r.Context(), &service.CreateReviewInput{
		ShopID:   shopID,
		AuthorID: authorID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// Respond handles POST /api/v1/reviews/{id}/response
func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, reviewID); !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RespondRequest
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

	review, err := h.service.Respond(r.Context(), reviewID, userID, req.Response)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, reviewID); !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())

	if err := h.service.DeleteReview(r.Context(), reviewID, userID, role); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyReviews handles GET /api/v1/my/reviews
func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	authorID := middleware.UserIDFromContext(r.Context())
	page, perPage := parsePagination(r)

	reviews, total, err := h.service.ListMyReviews(r.Context(), authorID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, page, perPage))
}
