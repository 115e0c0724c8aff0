package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khojhub/shop-service/internal/cache"
	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/geo"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// DefaultRadiusKm is the search radius applied when a center is given
// without an explicit radius.
const DefaultRadiusKm = 10

// SearchQuery holds the discovery search parameters as received from the
// transport layer, before defaulting. A zero RadiusKm means the radius was
// not supplied; the transport layer rejects an explicit zero.
type SearchQuery struct {
	Center     *geo.Point
	RadiusKm   float64
	CategoryID *string
	MinRating  float64
	Page       int
	PerPage    int
}

// SearchResult is one page of discovery results.
type SearchResult struct {
	Shops      []domain.Shop `json:"shops"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// DiscoveryService implements proximity-ranked shop search. It is a pure
// read path: no operation here ever mutates shops or aggregates.
type DiscoveryService struct {
	shops  repository.ShopRepository
	cache  *cache.SearchCache
	logger *slog.Logger
}

// NewDiscoveryService creates a new discovery service. The cache may be nil
// to disable caching.
func NewDiscoveryService(shops repository.ShopRepository, searchCache *cache.SearchCache, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		shops:  shops,
		cache:  searchCache,
		logger: logger,
	}
}

// Search returns active shops matching every given filter, ordered by
// average rating, then recency, then id. Out-of-range pages yield an empty
// page carrying the true total.
func (s *DiscoveryService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	filter, err := s.buildFilter(q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if page, ok := s.cache.Get(ctx, filter); ok {
			return newSearchResult(page.Shops, page.TotalCount, filter), nil
		}
	}

	shops, total, err := s.shops.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search shops: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, filter, &cache.SearchPage{Shops: shops, TotalCount: total})
	}

	return newSearchResult(shops, total, filter), nil
}

// buildFilter validates the query and applies defaults.
func (s *DiscoveryService) buildFilter(q SearchQuery) (repository.SearchFilter, error) {
	if q.Center != nil {
		if err := q.Center.Validate(); err != nil {
			return repository.SearchFilter{}, err
		}
	}
	if q.RadiusKm < 0 {
		return repository.SearchFilter{}, apperrors.InvalidInput("radius must not be negative")
	}
	if q.MinRating < 0 || q.MinRating > domain.MaxRating {
		return repository.SearchFilter{}, apperrors.InvalidInput(fmt.Sprintf("min rating must be between 0 and %d", domain.MaxRating))
	}

	radius := q.RadiusKm
	if radius == 0 {
		radius = DefaultRadiusKm
	}

	page, perPage := normalizePage(q.Page, q.PerPage)

	return repository.SearchFilter{
		Center:     q.Center,
		RadiusKm:   radius,
		CategoryID: q.CategoryID,
		MinRating:  q.MinRating,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

func newSearchResult(shops []domain.Shop, total int, filter repository.SearchFilter) *SearchResult {
	totalPages := total / filter.PerPage
	if total%filter.PerPage > 0 {
		totalPages++
	}
	if shops == nil {
		shops = []domain.Shop{}
	}
	return &SearchResult{
		Shops:      shops,
		TotalCount: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	}
}
