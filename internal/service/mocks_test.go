package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/event"
	"github.com/khojhub/shop-service/internal/repository"
	pkgkafka "github.com/khojhub/shop-service/pkg/kafka"
)

// --- Mock Shop Repository ---

type mockShopRepository struct {
	mock.Mock
}

func (m *mockShopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *mockShopRepository) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

func (m *mockShopRepository) GetOwned(ctx context.Context, id, ownerID string) (*domain.Shop, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

func (m *mockShopRepository) Search(ctx context.Context, filter repository.SearchFilter) ([]domain.Shop, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Shop), args.Int(1), args.Error(2)
}

func (m *mockShopRepository) ListByOwner(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error) {
	args := m.Called(ctx, ownerID, page, perPage)
	return args.Get(0).([]domain.Shop), args.Int(1), args.Error(2)
}

func (m *mockShopRepository) Update(ctx context.Context, shop *domain.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *mockShopRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) SetResponse(ctx context.Context, id, response string) error {
	args := m.Called(ctx, id, response)
	return args.Error(0)
}

func (m *mockReviewRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) Restore(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) HardDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, shopID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListByAuthor(ctx context.Context, authorID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, authorID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error) {
	args := m.Called(ctx, shopID, page, perPage)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) DeactivateByShop(ctx context.Context, shopID string) (int64, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Category Repository ---

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

// --- Mock Rating Ledger ---

type mockRatingLedger struct {
	mock.Mock
}

func (m *mockRatingLedger) Adjust(ctx context.Context, shopID string, delta repository.RatingDelta) (int64, int, error) {
	args := m.Called(ctx, shopID, delta)
	return args.Get(0).(int64), args.Int(1), args.Error(2)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer creates an event producer backed by a Kafka writer with no
// real broker behind it. Publishing fails and the services log and move on.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func strPtr(s string) *string {
	return &s
}
