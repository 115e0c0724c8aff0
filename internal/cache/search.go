package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/repository"
)

// DefaultSearchTTL bounds how stale a cached search page may be. Discovery
// reads tolerate short staleness; writers never invalidate.
const DefaultSearchTTL = 30 * time.Second

// SearchPage is the cached unit: one page of search results with its total.
type SearchPage struct {
	Shops      []domain.Shop `json:"shops"`
	TotalCount int           `json:"total_count"`
}

// SearchCache is a read-through Redis cache for discovery search pages.
// Cache failures are soft: a Redis outage degrades to uncached reads.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSearchCache creates a search cache with the given TTL. A zero ttl
// falls back to DefaultSearchTTL.
func NewSearchCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	return &SearchCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key derives a deterministic cache key from the full filter, so every
// distinct combination of center, radius, category, rating bound, and page
// caches independently.
func (c *SearchCache) Key(filter repository.SearchFilter) string {
	raw, _ := json.Marshal(struct {
		Center     *geoPoint `json:"center,omitempty"`
		RadiusKm   float64   `json:"radius_km"`
		CategoryID *string   `json:"category_id,omitempty"`
		MinRating  float64   `json:"min_rating"`
		Page       int       `json:"page"`
		PerPage    int       `json:"per_page"`
	}{
		Center:     newGeoPoint(filter),
		RadiusKm:   filter.RadiusKm,
		CategoryID: filter.CategoryID,
		MinRating:  filter.MinRating,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	})

	sum := sha256.Sum256(raw)
	return "search:shops:" + hex.EncodeToString(sum[:16])
}

type geoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func newGeoPoint(filter repository.SearchFilter) *geoPoint {
	if filter.Center == nil {
		return nil
	}
	return &geoPoint{Lon: filter.Center.Longitude, Lat: filter.Center.Latitude}
}

// Get returns the cached page for the filter, or ok=false on miss or error.
func (c *SearchCache) Get(ctx context.Context, filter repository.SearchFilter) (*SearchPage, bool) {
	raw, err := c.client.Get(ctx, c.Key(filter)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var page SearchPage
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.WarnContext(ctx, "search cache entry corrupt", slog.String("error", err.Error()))
		return nil, false
	}

	return &page, true
}

// Set stores a page under the filter's key with the configured TTL.
func (c *SearchCache) Set(ctx context.Context, filter repository.SearchFilter, page *SearchPage) {
	raw, err := json.Marshal(page)
	if err != nil {
		c.logger.WarnContext(ctx, "search cache marshal failed", slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(ctx, c.Key(filter), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
	}
}

// Ping verifies Redis connectivity for readiness checks.
func (c *SearchCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
