package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/event"
	"github.com/khojhub/shop-service/internal/geo"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// ShopService implements the business logic for shop directory operations.
type ShopService struct {
	shops    repository.ShopRepository
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewShopService creates a new shop service.
func NewShopService(
	shops repository.ShopRepository,
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ShopService {
	return &ShopService{
		shops:    shops,
		products: products,
		reviews:  reviews,
		producer: producer,
		logger:   logger,
	}
}

// CreateShopInput holds the parameters for registering a shop.
type CreateShopInput struct {
	Name          string
	Description   string
	CategoryID    *string
	Longitude     float64
	Latitude      float64
	Address       domain.Address
	Contact       domain.Contact
	BusinessHours domain.BusinessHours
}

// UpdateShopInput holds the mutable shop fields. Only these six fields can
// ever change after creation; location, owner, and category are fixed, and
// the rating aggregates belong to the ledger alone.
type UpdateShopInput struct {
	Name          *string
	Description   *string
	Address       *domain.Address
	Contact       *domain.Contact
	BusinessHours *domain.BusinessHours
	LogoURL       *string
}

// CreateShop registers a new shop for the given owner. The shop starts
// active with zeroed rating aggregates.
func (s *ShopService) CreateShop(ctx context.Context, ownerID string, input *CreateShopInput) (*domain.Shop, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("shop name is required")
	}

	point := geo.Point{Longitude: input.Longitude, Latitude: input.Latitude}
	if err := point.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	shop := &domain.Shop{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Name:          input.Name,
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		Longitude:     input.Longitude,
		Latitude:      input.Latitude,
		Address:       input.Address,
		Contact:       input.Contact,
		BusinessHours: input.BusinessHours,
		RatingSum:     0,
		RatingCount:   0,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.shops.Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("create shop: %w", err)
	}

	if err := s.producer.PublishShopCreated(ctx, shop); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shop.created event",
			slog.String("shop_id", shop.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "shop created",
		slog.String("shop_id", shop.ID),
		slog.String("owner_id", ownerID),
	)

	return shop, nil
}

// GetShop retrieves an active shop with its derived average rating.
func (s *ShopService) GetShop(ctx context.Context, id string) (*domain.Shop, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

// GetShopDetail retrieves an active shop together with its active products
// and the requested page of its active reviews.
func (s *ShopService) GetShopDetail(ctx context.Context, id string, reviewPage, reviewPerPage int) (*domain.ShopDetail, error) {
	shop, err := s.shops.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}

	detail := &domain.ShopDetail{Shop: *shop}

	products, _, err := s.products.ListByShop(ctx, id, 1, 100)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load shop products",
			slog.String("shop_id", id),
			slog.String("error", err.Error()),
		)
		products = []domain.Product{}
	}
	detail.Products = products

	reviews, _, err := s.reviews.ListByShop(ctx, id, reviewPage, reviewPerPage)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load shop reviews",
			slog.String("shop_id", id),
			slog.String("error", err.Error()),
		)
		reviews = []domain.Review{}
	}
	detail.Reviews = reviews

	return detail, nil
}

// ListMyShops returns the caller's active shops.
func (s *ShopService) ListMyShops(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error) {
	page, perPage = normalizePage(page, perPage)

	shops, total, err := s.shops.ListByOwner(ctx, ownerID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list shops by owner: %w", err)
	}

	return shops, total, nil
}

// UpdateShop applies partial updates to a shop owned by the caller. Fields
// outside the allow-list cannot be expressed in the input and are thereby
// silently ignored. A missing, deleted, or foreign shop is a plain not
// found, with no hint of which.
func (s *ShopService) UpdateShop(ctx context.Context, id, ownerID string, input *UpdateShopInput) (*domain.Shop, error) {
	shop, err := s.shops.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get shop for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("shop name must not be empty")
		}
		shop.Name = *input.Name
	}
	if input.Description != nil {
		shop.Description = *input.Description
	}
	if input.Address != nil {
		shop.Address = *input.Address
	}
	if input.Contact != nil {
		shop.Contact = *input.Contact
	}
	if input.BusinessHours != nil {
		shop.BusinessHours = *input.BusinessHours
	}
	if input.LogoURL != nil {
		shop.LogoURL = input.LogoURL
	}

	if err := s.shops.Update(ctx, shop); err != nil {
		return nil, fmt.Errorf("update shop: %w", err)
	}

	s.logger.InfoContext(ctx, "shop updated",
		slog.String("shop_id", shop.ID),
		slog.String("owner_id", ownerID),
	)

	return shop, nil
}

// DeleteShop soft-deletes a shop owned by the caller and cascades the
// deactivation to its products. The cascade is best effort: a failure is
// logged but does not undo the deletion, and the shop.deleted event lets the
// reconciliation consumer finish the job. The shop's rating aggregates are
// left untouched so deletion and review settlement never race.
func (s *ShopService) DeleteShop(ctx context.Context, id, ownerID string) error {
	if err := s.shops.SoftDelete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}

	affected, err := s.products.DeactivateByShop(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "product cascade failed, deferring to reconciliation",
			slog.String("shop_id", id),
			slog.String("error", err.Error()),
		)
	} else if affected > 0 {
		s.logger.InfoContext(ctx, "shop products deactivated",
			slog.String("shop_id", id),
			slog.Int64("products_deactivated", affected),
		)
	}

	if err := s.producer.PublishShopDeleted(ctx, id, ownerID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shop.deleted event",
			slog.String("shop_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "shop deleted",
		slog.String("shop_id", id),
		slog.String("owner_id", ownerID),
	)

	return nil
}

// normalizePage clamps pagination parameters to sane bounds.
func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
