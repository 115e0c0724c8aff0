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

const productColumns = "id, shop_id, name, description, price, currency, image_url, is_active, created_at, updated_at"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, shop_id, name, description, price, currency, image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.ShopID,
		p.Name,
		p.Description,
		p.Price,
		p.Currency,
		p.ImageURL,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves an active product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND is_active = TRUE`, productColumns)

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.ShopID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.ImageURL,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// ListByShop returns paginated active products of a shop.
func (r *ProductRepository) ListByShop(ctx context.Context, shopID string, page, perPage int) ([]domain.Product, int, error) {
	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM products
		WHERE shop_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, productColumns)

	limit, offset := limitOffset(page, perPage)

	rows, err := r.pool.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product

		if err := rows.Scan(
			&p.ID,
			&p.ShopID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Currency,
			&p.ImageURL,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	if len(products) == 0 && offset > 0 {
		totalCount, err = countRows(ctx, r.pool,
			"SELECT count(*) FROM products WHERE shop_id = $1 AND is_active = TRUE", shopID)
		if err != nil {
			return nil, 0, err
		}
	}

	return products, totalCount, nil
}

// SoftDelete deactivates a single active product.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE products
		SET is_active = FALSE, updated_at = $1
		WHERE id = $2 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// DeactivateByShop deactivates every active product of a shop. Idempotent:
// reapplying it affects zero rows and succeeds, which is what makes the
// cascade safely retryable.
func (r *ProductRepository) DeactivateByShop(ctx context.Context, shopID string) (int64, error) {
	query := `
		UPDATE products
		SET is_active = FALSE, updated_at = $1
		WHERE shop_id = $2 AND is_active = TRUE`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), shopID)
	if err != nil {
		return 0, fmt.Errorf("deactivate products by shop: %w", err)
	}

	return ct.RowsAffected(), nil
}
