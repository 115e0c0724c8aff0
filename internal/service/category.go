package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// CategoryService implements category management. Creation is admin only,
// enforced at the transport layer.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		logger:     logger,
	}
}

// CreateCategory registers a new category.
func (s *CategoryService) CreateCategory(ctx context.Context, name string, iconURL *string) (*domain.Category, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		IconURL:   iconURL,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("name", category.Name),
	)

	return category, nil
}

// ListCategories returns all categories.
func (s *CategoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
