package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/pkg/database"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

const reviewColumns = "id, shop_id, author_id, rating, comment, response, is_active, deleted_at, created_at, updated_at"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new active review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `
		INSERT INTO reviews (id, shop_id, author_id, rating, comment, response, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rv.ID,
		rv.ShopID,
		rv.AuthorID,
		rv.Rating,
		rv.Comment,
		rv.Response,
		rv.IsActive,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves an active review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE id = $1 AND is_active = TRUE`, reviewColumns)

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ShopID,
		&rv.AuthorID,
		&rv.Rating,
		&rv.Comment,
		&rv.Response,
		&rv.IsActive,
		&rv.DeletedAt,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// SetResponse stores the shop owner's response on an active review. The
// response may be overwritten any number of times.
func (r *ReviewRepository) SetResponse(ctx context.Context, id, response string) error {
	query := `
		UPDATE reviews
		SET response = $1, updated_at = $2
		WHERE id = $3 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query, response, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set review response: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// SoftDelete deactivates an active review. A second deletion of the same
// review finds no active row and returns not found.
func (r *ReviewRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := `
		UPDATE reviews
		SET is_active = FALSE, deleted_at = $1, updated_at = $1
		WHERE id = $2 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("soft delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// Restore reactivates a soft-deleted review. Compensation path for a ledger
// adjustment that could not be applied.
func (r *ReviewRepository) Restore(ctx context.Context, id string) error {
	query := `
		UPDATE reviews
		SET is_active = TRUE, deleted_at = NULL, updated_at = $1
		WHERE id = $2 AND is_active = FALSE`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("restore review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// HardDelete removes a review row entirely. Compensation path for a created
// review whose ledger adjustment could not be applied.
func (r *ReviewRepository) HardDelete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("hard delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListByShop returns paginated active reviews for a shop, newest first.
func (r *ReviewRepository) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Review, int, error) {
	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE shop_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, reviewColumns)

	limit, offset := limitOffset(page, perPage)
	reviews, total, err := r.queryReviews(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if len(reviews) == 0 && offset > 0 {
		total, err = countRows(ctx, r.pool,
			"SELECT count(*) FROM reviews WHERE shop_id = $1 AND is_active = TRUE", shopID)
		if err != nil {
			return nil, 0, err
		}
	}

	return reviews, total, nil
}

// ListByAuthor returns paginated active reviews written by a user, newest first.
func (r *ReviewRepository) ListByAuthor(ctx context.Context, authorID string, page, perPage int) ([]domain.Review, int, error) {
	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE author_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, reviewColumns)

	limit, offset := limitOffset(page, perPage)
	reviews, total, err := r.queryReviews(ctx, query, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if len(reviews) == 0 && offset > 0 {
		total, err = countRows(ctx, r.pool,
			"SELECT count(*) FROM reviews WHERE author_id = $1 AND is_active = TRUE", authorID)
		if err != nil {
			return nil, 0, err
		}
	}

	return reviews, total, nil
}

// queryReviews runs a multi-row review query carrying a trailing total_count column.
func (r *ReviewRepository) queryReviews(ctx context.Context, query string, args ...any) ([]domain.Review, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review

		if err := rows.Scan(
			&rv.ID,
			&rv.ShopID,
			&rv.AuthorID,
			&rv.Rating,
			&rv.Comment,
			&rv.Response,
			&rv.IsActive,
			&rv.DeletedAt,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}

		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// limitOffset normalizes pagination parameters.
func limitOffset(page, perPage int) (int, int) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}
	return limit, offset
}
