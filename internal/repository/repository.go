package repository

import (
	"context"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/geo"
)

// SearchFilter defines the conjunctive filter criteria for shop discovery.
// A nil Center disables the spatial filter (global search). MinRating 0
// disables the rating filter so unrated shops are included.
type SearchFilter struct {
	Center     *geo.Point
	RadiusKm   float64
	CategoryID *string
	MinRating  float64
	Page       int
	PerPage    int
}

// RatingDelta is a signed adjustment to a shop's rating aggregates. A review
// creation contributes (+rating, +1); a soft-deletion contributes
// (-rating, -1).
type RatingDelta struct {
	Sum   int64
	Count int
}

// RatingLedger maintains the per-shop rating aggregates.
type RatingLedger interface {
	// Adjust applies the delta to the shop's aggregates in a single atomic
	// increment and returns the resulting sum and count. It retries
	// transient storage failures a bounded number of times; exhaustion
	// surfaces a conflict error and leaves the aggregates unchanged.
	Adjust(ctx context.Context, shopID string, delta RatingDelta) (sum int64, count int, err error)
}

// ShopRepository defines the interface for shop persistence operations.
// Read methods return only active shops.
type ShopRepository interface {
	// Create inserts a new shop with zeroed rating aggregates.
	Create(ctx context.Context, shop *domain.Shop) error

	// GetByID retrieves an active shop by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Shop, error)

	// GetOwned retrieves an active shop owned by the given user. A missing,
	// deleted, or foreign shop is indistinguishable: all return not found.
	GetOwned(ctx context.Context, id, ownerID string) (*domain.Shop, error)

	// Search returns active shops matching the filter, ordered by average
	// rating, recency, and id, along with the total match count.
	Search(ctx context.Context, filter SearchFilter) ([]domain.Shop, int, error)

	// ListByOwner returns the active shops owned by a user.
	ListByOwner(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error)

	// Update persists mutable shop fields. The row must be active and owned
	// by shop.OwnerID or not found is returned.
	Update(ctx context.Context, shop *domain.Shop) error

	// SoftDelete deactivates an active shop owned by the given user. The
	// rating aggregates are left untouched.
	SoftDelete(ctx context.Context, id, ownerID string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new active review. It does not touch the rating
	// aggregates; the service pairs it with a ledger adjustment.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves an active review by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// SetResponse stores the shop owner's response on an active review.
	SetResponse(ctx context.Context, id, response string) error

	// SoftDelete deactivates an active review. Deleting an already deleted
	// review returns not found.
	SoftDelete(ctx context.Context, id string) error

	// Restore reactivates a soft-deleted review. Used to compensate a
	// failed ledger adjustment.
	Restore(ctx context.Context, id string) error

	// HardDelete removes a review row entirely. Used to compensate a failed
	// ledger adjustment after creation.
	HardDelete(ctx context.Context, id string) error

	// ListByShop returns active reviews for a shop, newest first.
	ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Review, int, error)

	// ListByAuthor returns active reviews written by a user, newest first.
	ListByAuthor(ctx context.Context, authorID string, page, perPage int) ([]domain.Review, int, error)
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new active product.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves an active product by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// ListByShop returns active products of a shop.
	ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error)

	// SoftDelete deactivates a single active product.
	SoftDelete(ctx context.Context, id string) error

	// DeactivateByShop deactivates every active product of a shop and
	// returns the number of rows affected. Idempotent: a second call
	// affects zero rows and succeeds.
	DeactivateByShop(ctx context.Context, shopID string) (int64, error)
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	// Create inserts a new category.
	Create(ctx context.Context, category *domain.Category) error

	// List returns all categories ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
}
