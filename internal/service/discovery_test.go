package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khojhub/shop-service/internal/cache"
	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/geo"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

func newTestDiscoveryService(shops *mockShopRepository, searchCache *cache.SearchCache) *DiscoveryService {
	return NewDiscoveryService(shops, searchCache, newTestLogger())
}

func newMiniredisCache(t *testing.T) *cache.SearchCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewSearchCache(client, cache.DefaultSearchTTL, newTestLogger())
}

func TestSearch_DefaultsAppliedWithCenter(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)
	ctx := context.Background()

	center := &geo.Point{Longitude: 85.3123, Latitude: 27.7152}
	expected := repository.SearchFilter{
		Center:   center,
		RadiusKm: DefaultRadiusKm,
		Page:     1,
		PerPage:  20,
	}
	shops.On("Search", ctx, expected).
		Return([]domain.Shop{{ID: "shop-1", Name: "Thamel Spice House"}}, 1, nil)

	result, err := svc.Search(ctx, SearchQuery{Center: center})

	require.NoError(t, err)
	assert.Len(t, result.Shops, 1)
	assert.Equal(t, 1, result.TotalCount)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
	assert.Equal(t, 1, result.TotalPages)

	shops.AssertExpectations(t)
}

func TestSearch_NoCenterIsGlobal(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)
	ctx := context.Background()

	shops.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool {
		return f.Center == nil
	})).Return([]domain.Shop{}, 0, nil)

	result, err := svc.Search(ctx, SearchQuery{})

	require.NoError(t, err)
	assert.NotNil(t, result.Shops)
	assert.Empty(t, result.Shops)

	shops.AssertExpectations(t)
}

func TestSearch_InvalidCenter(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)

	result, err := svc.Search(context.Background(), SearchQuery{
		Center: &geo.Point{Longitude: 181, Latitude: 0},
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	shops.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearch_NegativeRadius(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)

	result, err := svc.Search(context.Background(), SearchQuery{
		Center:   &geo.Point{Longitude: 85.3, Latitude: 27.7},
		RadiusKm: -1,
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearch_MinRatingOutOfRange(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)

	for _, minRating := range []float64{-0.5, 5.5} {
		result, err := svc.Search(context.Background(), SearchQuery{MinRating: minRating})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

// fakeShopStore serves Search from an in-memory shop list, applying the
// minimum-average-rating cut the way the SQL predicate does. The remaining
// repository methods are unused by discovery.
type fakeShopStore struct {
	shops []domain.Shop
}

func (f *fakeShopStore) Create(ctx context.Context, s *domain.Shop) error { return nil }

func (f *fakeShopStore) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeShopStore) GetOwned(ctx context.Context, id, ownerID string) (*domain.Shop, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeShopStore) ListByOwner(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error) {
	return []domain.Shop{}, 0, nil
}

func (f *fakeShopStore) Update(ctx context.Context, s *domain.Shop) error { return nil }

func (f *fakeShopStore) SoftDelete(ctx context.Context, id, ownerID string) error { return nil }

func (f *fakeShopStore) Search(ctx context.Context, filter repository.SearchFilter) ([]domain.Shop, int, error) {
	var matched []domain.Shop
	for _, s := range f.shops {
		if !s.IsActive {
			continue
		}
		if filter.MinRating > 0 && domain.ComputeAverage(s.RatingSum, s.RatingCount) < filter.MinRating {
			continue
		}
		matched = append(matched, s)
	}
	return matched, len(matched), nil
}

func TestSearch_MinRatingBoundaryIsInclusive(t *testing.T) {
	// 399/100 averages 3.99 and falls below the cut; 400/100 sits exactly
	// on it and must be included.
	store := &fakeShopStore{shops: []domain.Shop{
		{ID: "shop-399", Name: "Asan Tea Stall", RatingSum: 399, RatingCount: 100, IsActive: true},
		{ID: "shop-400", Name: "Patan Pottery", RatingSum: 400, RatingCount: 100, IsActive: true},
		{ID: "shop-unrated", Name: "New Corner Store", IsActive: true},
	}}
	svc := NewDiscoveryService(store, nil, newTestLogger())

	result, err := svc.Search(context.Background(), SearchQuery{MinRating: 4.0})
	require.NoError(t, err)
	require.Len(t, result.Shops, 1)
	assert.Equal(t, "shop-400", result.Shops[0].ID)

	// Without the cut every active shop matches, unrated included.
	all, err := svc.Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Shops, 3)
}

func TestSearch_OutOfRangePageCarriesTrueTotal(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)
	ctx := context.Background()

	shops.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool {
		return f.Page == 9 && f.PerPage == 20
	})).Return([]domain.Shop{}, 45, nil)

	result, err := svc.Search(ctx, SearchQuery{Page: 9})

	require.NoError(t, err)
	assert.Empty(t, result.Shops)
	assert.Equal(t, 45, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 9, result.Page)
}

func TestSearch_CacheHitSkipsRepository(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, newMiniredisCache(t))
	ctx := context.Background()

	query := SearchQuery{
		Center:    &geo.Point{Longitude: 85.3123, Latitude: 27.7152},
		RadiusKm:  5,
		MinRating: 4,
	}
	shops.On("Search", ctx, mock.AnythingOfType("repository.SearchFilter")).
		Return([]domain.Shop{{ID: "shop-1", Name: "Patan Pottery"}}, 1, nil).Once()

	first, err := svc.Search(ctx, query)
	require.NoError(t, err)

	// Second identical search must be served from the cache. The mock only
	// allows one repository call.
	second, err := svc.Search(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first.TotalCount, second.TotalCount)
	require.Len(t, second.Shops, 1)
	assert.Equal(t, "shop-1", second.Shops[0].ID)

	shops.AssertExpectations(t)
}

func TestSearch_DistinctPagesCacheSeparately(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, newMiniredisCache(t))
	ctx := context.Background()

	shops.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool { return f.Page == 1 })).
		Return([]domain.Shop{{ID: "shop-1"}}, 2, nil).Once()
	shops.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool { return f.Page == 2 })).
		Return([]domain.Shop{{ID: "shop-2"}}, 2, nil).Once()

	pageOne, err := svc.Search(ctx, SearchQuery{Page: 1, PerPage: 1})
	require.NoError(t, err)
	pageTwo, err := svc.Search(ctx, SearchQuery{Page: 2, PerPage: 1})
	require.NoError(t, err)

	assert.Equal(t, "shop-1", pageOne.Shops[0].ID)
	assert.Equal(t, "shop-2", pageTwo.Shops[0].ID)

	shops.AssertExpectations(t)
}

func TestSearch_PaginationCoversAllResults(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)
	ctx := context.Background()

	// Five matches served two per page in a fixed order.
	all := []domain.Shop{
		{ID: "shop-a"}, {ID: "shop-b"}, {ID: "shop-c"}, {ID: "shop-d"}, {ID: "shop-e"},
	}
	for page := 1; page <= 3; page++ {
		lo := (page - 1) * 2
		hi := lo + 2
		if hi > len(all) {
			hi = len(all)
		}
		p := page
		shops.On("Search", ctx, mock.MatchedBy(func(f repository.SearchFilter) bool {
			return f.Page == p && f.PerPage == 2
		})).Return(all[lo:hi], len(all), nil)
	}

	seen := make(map[string]int)
	for page := 1; page <= 3; page++ {
		result, err := svc.Search(ctx, SearchQuery{Page: page, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, result.TotalCount)
		assert.Equal(t, 3, result.TotalPages)
		for _, s := range result.Shops {
			seen[s.ID]++
		}
	}

	// Every match appears exactly once across the pages.
	assert.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equalf(t, 1, n, "shop %s appeared %d times", id, n)
	}
}

func TestSearch_RepositoryError(t *testing.T) {
	shops := new(mockShopRepository)
	svc := newTestDiscoveryService(shops, nil)
	ctx := context.Background()

	shops.On("Search", ctx, mock.AnythingOfType("repository.SearchFilter")).
		Return([]domain.Shop{}, 0, fmt.Errorf("connection refused"))

	result, err := svc.Search(ctx, SearchQuery{})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search shops")
}
