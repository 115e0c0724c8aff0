package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/event"
	"github.com/khojhub/shop-service/internal/repository"
	"github.com/khojhub/shop-service/internal/service"
	"github.com/khojhub/shop-service/pkg/httputil"
	pkgkafka "github.com/khojhub/shop-service/pkg/kafka"
	"github.com/khojhub/shop-service/pkg/middleware"
)

// =============================================================================
// Mock repositories
// =============================================================================

type mockShopRepo struct {
	mock.Mock
}

func (m *mockShopRepo) Create(ctx context.Context, shop *domain.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *mockShopRepo) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

func (m *mockShopRepo) GetOwned(ctx context.Context, id, ownerID string) (*domain.Shop, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shop), args.Error(1)
}

func (m *mockShopRepo) Search(ctx context.Context, filter repository.SearchFilter) ([]domain.Shop, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Shop), args.Int(1), args.Error(2)
}

func (m *mockShopRepo) ListByOwner(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error) {
	args := m.Called(ctx, ownerID, page, perPage)
	return args.Get(0).([]domain.Shop), args.Int(1), args.Error(2)
}

func (m *mockShopRepo) Update(ctx context.Context, shop *domain.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *mockShopRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) SetResponse(ctx context.Context, id, response string) error {
	args := m.Called(ctx, id, response)
	return args.Error(0)
}

func (m *mockReviewRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) Restore(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) HardDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, shopID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) ListByAuthor(ctx context.Context, authorID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, authorID, page, perPage)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error) {
	args := m.Called(ctx, shopID, page, perPage)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepo) DeactivateByShop(ctx context.Context, shopID string) (int64, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).(int64), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Adjust(ctx context.Context, shopID string, delta repository.RatingDelta) (int64, int, error) {
	args := m.Called(ctx, shopID, delta)
	return args.Get(0).(int64), args.Int(1), args.Error(2)
}

// =============================================================================
// Test helpers
// =============================================================================

const (
	testShopID   = "550e8400-e29b-41d4-a716-446655440001"
	testReviewID = "550e8400-e29b-41d4-a716-446655440002"
	testUserID   = "550e8400-e29b-41d4-a716-446655440003"
	testOwnerID  = "550e8400-e29b-41d4-a716-446655440004"
)

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

// fakeTokenValidator returns a validator that always succeeds with the given
// identity, so authenticated routes can be exercised without minting tokens.
func fakeTokenValidator(userID, role string) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: userID, Email: "test@khojhub.com", Role: role}, nil
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func sampleShop() *domain.Shop {
	now := time.Now().UTC()
	return &domain.Shop{
		ID:          testShopID,
		OwnerID:     testOwnerID,
		Name:        "Thamel Spice House",
		Description: "Spices and dry goods",
		Longitude:   85.3123,
		Latitude:    27.7152,
		Address: domain.Address{
			Street: "Thamel Marg",
			City:   "Kathmandu",
		},
		RatingSum:     9,
		RatingCount:   2,
		AverageRating: 4.5,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func sampleReview() *domain.Review {
	now := time.Now().UTC()
	return &domain.Review{
		ID:        testReviewID,
		ShopID:    testShopID,
		AuthorID:  testUserID,
		Rating:    4,
		Comment:   "Great selection of spices.",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// setupShopRouter mirrors the production shop and discovery routes, with a
// fake token validator for the authenticated group.
func setupShopRouter(shops *mockShopRepo, products *mockProductRepo, reviews *mockReviewRepo, userID, role string) *chi.Mux {
	logger := handlerTestLogger()
	producer := handlerTestProducer()

	shopService := service.NewShopService(shops, products, reviews, producer, logger)
	discoveryService := service.NewDiscoveryService(shops, nil, logger)
	handler := NewShopHandler(shopService, discoveryService, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/shops", func(r chi.Router) {
		r.Get("/", handler.Search)
		r.Get("/{id}", handler.GetShop)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(fakeTokenValidator(userID, role)))
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Post("/", handler.CreateShop)
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Put("/{id}", handler.UpdateShop)
			r.With(middleware.RequireRole(domain.RoleShopkeeper, domain.RoleAdmin)).
				Delete("/{id}", handler.DeleteShop)
		})
	})
	r.Route("/api/v1/my", func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(userID, role)))
		r.Get("/shops", handler.ListMyShops)
	})
	return r
}

// setupReviewRouter mirrors the production review routes.
func setupReviewRouter(reviews *mockReviewRepo, shops *mockShopRepo, ledger *mockLedger, userID, role string) *chi.Mux {
	logger := handlerTestLogger()
	producer := handlerTestProducer()

	reviewService := service.NewReviewService(reviews, shops, ledger, producer, logger)
	handler := NewReviewHandler(reviewService, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/shops/{id}/reviews", func(r chi.Router) {
		r.Get("/", handler.ListShopReviews)
		r.With(middleware.Auth(fakeTokenValidator(userID, role))).Post("/", handler.CreateReview)
	})
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(userID, role)))
		r.Post("/{id}/response", handler.Respond)
		r.Delete("/{id}", handler.DeleteReview)
	})
	return r
}
