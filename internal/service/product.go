package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// ProductService implements the business logic for products within a shop.
type ProductService struct {
	products repository.ProductRepository
	shops    repository.ShopRepository
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, shops repository.ShopRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		shops:    shops,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for adding a product to a shop.
type CreateProductInput struct {
	ShopID      string
	Name        string
	Description string
	Price       int64
	Currency    string
	ImageURL    *string
}

// CreateProduct adds a product to a shop owned by the caller.
func (s *ProductService) CreateProduct(ctx context.Context, ownerID string, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if len(input.Currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}

	if _, err := s.shops.GetOwned(ctx, input.ShopID, ownerID); err != nil {
		return nil, fmt.Errorf("get shop for product: %w", err)
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		ShopID:      input.ShopID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Currency:    strings.ToUpper(input.Currency),
		ImageURL:    input.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("shop_id", product.ShopID),
	)

	return product, nil
}

// ListShopProducts returns paginated active products of an active shop.
func (s *ProductService) ListShopProducts(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error) {
	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		return nil, 0, fmt.Errorf("get shop for products: %w", err)
	}

	page, perPage = normalizePage(page, perPage)

	products, total, err := s.products.ListByShop(ctx, shopID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// DeleteProduct soft-deletes a single product of a shop owned by the caller.
func (s *ProductService) DeleteProduct(ctx context.Context, productID, ownerID string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if _, err := s.shops.GetOwned(ctx, product.ShopID, ownerID); err != nil {
		return fmt.Errorf("get shop for product delete: %w", err)
	}

	if err := s.products.SoftDelete(ctx, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", productID),
		slog.String("shop_id", product.ShopID),
	)

	return nil
}
