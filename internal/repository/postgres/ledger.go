package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/khojhub/shop-service/internal/repository"
	"github.com/khojhub/shop-service/pkg/database"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// maxAdjustAttempts bounds the retries of a single ledger adjustment before
// it is given up as a conflict.
const maxAdjustAttempts = 3

var (
	ledgerAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_ledger_adjustments_total",
			Help: "Total number of rating ledger adjustments by result",
		},
		[]string{"result"},
	)

	ledgerRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rating_ledger_adjustment_retries_total",
			Help: "Total number of retried rating ledger adjustments",
		},
	)
)

// RatingLedger implements repository.RatingLedger using PostgreSQL.
//
// Every adjustment is a single atomic increment of the stored aggregates,
// never a read-modify-write, so concurrent adjustments interleave safely and
// the aggregates equal the sum over the applied deltas in any order.
type RatingLedger struct {
	pool   database.DBTX
	logger *slog.Logger
}

// NewRatingLedger creates a new PostgreSQL-backed rating ledger.
func NewRatingLedger(pool database.DBTX, logger *slog.Logger) *RatingLedger {
	return &RatingLedger{pool: pool, logger: logger}
}

// Adjust applies the delta to the shop's rating aggregates and returns the
// resulting sum and count. Transient failures are retried with exponential
// backoff; after the attempts are exhausted the aggregates are guaranteed
// unchanged and a conflict error is returned. The shop's active flag is not
// checked: reviews of a soft-deleted shop still settle against its ledger.
func (l *RatingLedger) Adjust(ctx context.Context, shopID string, delta repository.RatingDelta) (int64, int, error) {
	query := `
		UPDATE shops
		SET rating_sum = rating_sum + $1, rating_count = rating_count + $2, updated_at = $3
		WHERE id = $4
		RETURNING rating_sum, rating_count`

	var lastErr error
	for attempt := 1; attempt <= maxAdjustAttempts; attempt++ {
		if attempt > 1 {
			ledgerRetries.Inc()
			backoff := time.Duration(1<<(attempt-2)) * 50 * time.Millisecond
			l.logger.WarnContext(ctx, "rating adjustment failed, retrying",
				slog.String("shop_id", shopID),
				slog.Int64("delta_sum", delta.Sum),
				slog.Int("delta_count", delta.Count),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				ledgerAdjustments.WithLabelValues("canceled").Inc()
				return 0, 0, fmt.Errorf("adjust rating: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		var (
			sum   int64
			count int
		)
		err := l.pool.QueryRow(ctx, query, delta.Sum, delta.Count, time.Now().UTC(), shopID).Scan(&sum, &count)
		if err == nil {
			ledgerAdjustments.WithLabelValues("applied").Inc()
			return sum, count, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			ledgerAdjustments.WithLabelValues("not_found").Inc()
			return 0, 0, apperrors.NotFound("shop", shopID)
		}
		lastErr = err
	}

	ledgerAdjustments.WithLabelValues("exhausted").Inc()
	l.logger.ErrorContext(ctx, "rating adjustment exhausted retries",
		slog.String("shop_id", shopID),
		slog.Int64("delta_sum", delta.Sum),
		slog.Int("delta_count", delta.Count),
		slog.String("error", lastErr.Error()),
	)
	return 0, 0, apperrors.Conflict(fmt.Sprintf("rating adjustment for shop %s could not be applied", shopID))
}
