package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/geo"
	"github.com/khojhub/shop-service/internal/repository"
	"github.com/khojhub/shop-service/pkg/database"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// ratingAvgSQL derives the average rating from the stored aggregates. Shops
// without reviews sort as average 0.
const ratingAvgSQL = "CASE WHEN rating_count > 0 THEN rating_sum::float8 / rating_count ELSE 0 END"

const shopColumns = "id, owner_id, name, description, category_id, longitude, latitude, address, contact, business_hours, logo_url, rating_sum, rating_count, is_active, created_at, updated_at"

// ShopRepository implements repository.ShopRepository using PostgreSQL.
type ShopRepository struct {
	pool database.DBTX
}

// NewShopRepository creates a new PostgreSQL-backed shop repository.
func NewShopRepository(pool database.DBTX) *ShopRepository {
	return &ShopRepository{pool: pool}
}

// Create inserts a new shop into the database.
func (r *ShopRepository) Create(ctx context.Context, s *domain.Shop) error {
	addressJSON, contactJSON, hoursJSON, err := marshalShopJSON(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO shops (id, owner_id, name, description, category_id, longitude, latitude, address, contact, business_hours, logo_url, rating_sum, rating_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.Name,
		s.Description,
		s.CategoryID,
		s.Longitude,
		s.Latitude,
		addressJSON,
		contactJSON,
		hoursJSON,
		s.LogoURL,
		s.RatingSum,
		s.RatingCount,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("shop", "id", s.ID)
		}
		return fmt.Errorf("insert shop: %w", err)
	}

	return nil
}

// GetByID retrieves an active shop by its ID.
func (r *ShopRepository) GetByID(ctx context.Context, id string) (*domain.Shop, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM shops
		WHERE id = $1 AND is_active = TRUE`, shopColumns)

	return r.scanShop(ctx, query, id)
}

// GetOwned retrieves an active shop owned by the given user. Ownership and
// active state are checked together so a foreign shop and a deleted shop are
// indistinguishable to the caller.
func (r *ShopRepository) GetOwned(ctx context.Context, id, ownerID string) (*domain.Shop, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM shops
		WHERE id = $1 AND owner_id = $2 AND is_active = TRUE`, shopColumns)

	return r.scanShop(ctx, query, id, ownerID)
}

// Search returns active shops matching the filter with the total count. The
// spatial predicate is a spherical-cap test evaluated in SQL against the
// stored coordinates.
func (r *ShopRepository) Search(ctx context.Context, filter repository.SearchFilter) ([]domain.Shop, int, error) {
	var (
		conditions = []string{"is_active = TRUE"}
		args       []any
		argIndex   = 1
	)

	if filter.Center != nil {
		conditions = append(conditions, geo.SphericalCapSQL("longitude", "latitude", argIndex))
		args = append(args, filter.Center.Latitude, filter.Center.Longitude, geo.RadiusKmToRadians(filter.RadiusKm))
		argIndex += 3
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.MinRating > 0 {
		conditions = append(conditions, fmt.Sprintf("(%s) >= $%d", ratingAvgSQL, argIndex))
		args = append(args, filter.MinRating)
		argIndex++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	// count(*) OVER() yields the total match count in the same query. The
	// id tie-break keeps pagination stable when shops share rating and
	// creation time.
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM shops
		%s
		ORDER BY (%s) DESC, created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		shopColumns, whereClause, ratingAvgSQL, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	filterArgs := args
	args = append(args, limit, offset)

	shops, total, err := r.queryShops(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	// The window count only rides on returned rows. A page past the last
	// match comes back empty, so the true total needs its own query.
	if len(shops) == 0 && offset > 0 {
		total, err = countRows(ctx, r.pool, "SELECT count(*) FROM shops "+whereClause, filterArgs...)
		if err != nil {
			return nil, 0, err
		}
	}

	return shops, total, nil
}

// ListByOwner returns the active shops owned by a user with the total count.
func (r *ShopRepository) ListByOwner(ctx context.Context, ownerID string, page, perPage int) ([]domain.Shop, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM shops
		WHERE owner_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, shopColumns)

	shops, total, err := r.queryShops(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if len(shops) == 0 && offset > 0 {
		total, err = countRows(ctx, r.pool,
			"SELECT count(*) FROM shops WHERE owner_id = $1 AND is_active = TRUE", ownerID)
		if err != nil {
			return nil, 0, err
		}
	}

	return shops, total, nil
}

// Update persists the mutable fields of a shop. The row must be active and
// owned by s.OwnerID; zero rows affected surfaces as not found.
func (r *ShopRepository) Update(ctx context.Context, s *domain.Shop) error {
	addressJSON, contactJSON, hoursJSON, err := marshalShopJSON(s)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE shops
		SET name = $1, description = $2, address = $3, contact = $4,
		    business_hours = $5, logo_url = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query,
		s.Name,
		s.Description,
		addressJSON,
		contactJSON,
		hoursJSON,
		s.LogoURL,
		s.UpdatedAt,
		s.ID,
		s.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("shop", s.ID)
	}

	return nil
}

// SoftDelete deactivates an active shop owned by the given user. The rating
// aggregates are preserved for potential restoration.
func (r *ShopRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE shops
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2 AND owner_id = $3 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("soft delete shop: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("shop", id)
	}

	return nil
}

// queryShops runs a multi-row shop query carrying a trailing total_count column.
func (r *ShopRepository) queryShops(ctx context.Context, query string, args ...any) ([]domain.Shop, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query shops: %w", err)
	}
	defer rows.Close()

	var (
		shops      []domain.Shop
		totalCount int
	)

	for rows.Next() {
		var (
			s                                  domain.Shop
			addressJSON, contactJSON, hoursJSON []byte
		)

		if err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.Name,
			&s.Description,
			&s.CategoryID,
			&s.Longitude,
			&s.Latitude,
			&addressJSON,
			&contactJSON,
			&hoursJSON,
			&s.LogoURL,
			&s.RatingSum,
			&s.RatingCount,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan shop row: %w", err)
		}

		if err := unmarshalShopJSON(&s, addressJSON, contactJSON, hoursJSON); err != nil {
			return nil, 0, err
		}
		s.RefreshAverage()

		shops = append(shops, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate shop rows: %w", err)
	}

	if shops == nil {
		shops = []domain.Shop{}
	}

	return shops, totalCount, nil
}

// countRows runs a bare count query. Used when a paginated query returns no
// rows past the first page and the window total is therefore unobservable.
func countRows(ctx context.Context, pool database.DBTX, query string, args ...any) (int, error) {
	var total int
	if err := pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return total, nil
}

// scanShop executes a query expected to return a single shop row.
func (r *ShopRepository) scanShop(ctx context.Context, query string, args ...any) (*domain.Shop, error) {
	var (
		s                                  domain.Shop
		addressJSON, contactJSON, hoursJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Description,
		&s.CategoryID,
		&s.Longitude,
		&s.Latitude,
		&addressJSON,
		&contactJSON,
		&hoursJSON,
		&s.LogoURL,
		&s.RatingSum,
		&s.RatingCount,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan shop: %w", err)
	}

	if err := unmarshalShopJSON(&s, addressJSON, contactJSON, hoursJSON); err != nil {
		return nil, err
	}
	s.RefreshAverage()

	return &s, nil
}

// marshalShopJSON serializes the JSONB columns of a shop.
func marshalShopJSON(s *domain.Shop) (address, contact, hours []byte, err error) {
	if address, err = json.Marshal(s.Address); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal address: %w", err)
	}
	if contact, err = json.Marshal(s.Contact); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal contact: %w", err)
	}
	if s.BusinessHours != nil {
		if hours, err = json.Marshal(s.BusinessHours); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal business hours: %w", err)
		}
	}
	return address, contact, hours, nil
}

// unmarshalShopJSON deserializes the JSONB columns of a shop.
func unmarshalShopJSON(s *domain.Shop, address, contact, hours []byte) error {
	if address != nil {
		if err := json.Unmarshal(address, &s.Address); err != nil {
			return fmt.Errorf("unmarshal address: %w", err)
		}
	}
	if contact != nil {
		if err := json.Unmarshal(contact, &s.Contact); err != nil {
			return fmt.Errorf("unmarshal contact: %w", err)
		}
	}
	if hours != nil {
		if err := json.Unmarshal(hours, &s.BusinessHours); err != nil {
			return fmt.Errorf("unmarshal business hours: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
