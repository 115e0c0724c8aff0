package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khojhub/shop-service/internal/domain"
	"github.com/khojhub/shop-service/internal/event"
	"github.com/khojhub/shop-service/internal/repository"
	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// ReviewService implements the review lifecycle: creation, owner response,
// and terminal soft-deletion. Every transition that changes review
// visibility settles against the rating ledger, and a settlement that cannot
// be applied rolls the transition back so the aggregates and the visible
// reviews never drift apart.
type ReviewService struct {
	reviews  repository.ReviewRepository
	shops    repository.ShopRepository
	ledger   repository.RatingLedger
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	shops repository.ShopRepository,
	ledger repository.RatingLedger,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		shops:    shops,
		ledger:   ledger,
		producer: producer,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ShopID   string
	AuthorID string
	Rating   int
	Comment  string
}

// CreateReview submits a review against an active shop and settles
// (+rating, +1) with the ledger. If the settlement exhausts its retries the
// just-written review is removed again and the caller gets a conflict; the
// aggregates never include a review that is not visible.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}

	if _, err := s.shops.GetByID(ctx, input.ShopID); err != nil {
		return nil, fmt.Errorf("get shop for review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ShopID:    input.ShopID,
		AuthorID:  input.AuthorID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if _, _, err := s.ledger.Adjust(ctx, review.ShopID, repository.RatingDelta{Sum: int64(review.Rating), Count: 1}); err != nil {
		s.logger.ErrorContext(ctx, "rating settlement failed, removing review",
			slog.String("review_id", review.ID),
			slog.String("shop_id", review.ShopID),
			slog.String("error", err.Error()),
		)
		if delErr := s.reviews.HardDelete(ctx, review.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "compensating delete failed",
				slog.String("review_id", review.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("shop_id", review.ShopID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// Respond stores the shop owner's response on an active review. Responses
// have no ledger effect and may be overwritten.
func (s *ReviewService) Respond(ctx context.Context, reviewID, userID, response string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review for response: %w", err)
	}

	shop, err := s.shops.GetByID(ctx, review.ShopID)
	if err != nil {
		return nil, fmt.Errorf("get shop for response: %w", err)
	}
	if shop.OwnerID != userID {
		return nil, apperrors.Forbidden("only the shop owner may respond to reviews")
	}

	if err := s.reviews.SetResponse(ctx, reviewID, response); err != nil {
		return nil, fmt.Errorf("set review response: %w", err)
	}

	review.Response = &response

	s.logger.InfoContext(ctx, "review response stored",
		slog.String("review_id", reviewID),
		slog.String("shop_id", review.ShopID),
	)

	return review, nil
}

// DeleteReview soft-deletes an active review and settles (-rating, -1) with
// the ledger. Only the author or an admin may delete. Deletion is terminal;
// if the settlement cannot be applied the review is restored and the caller
// gets a conflict.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID, role string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if review.AuthorID != userID && role != domain.RoleAdmin {
		return apperrors.Forbidden("only the review author or an admin may delete a review")
	}

	if err := s.reviews.SoftDelete(ctx, reviewID); err != nil {
		return fmt.Errorf("soft delete review: %w", err)
	}

	if _, _, err := s.ledger.Adjust(ctx, review.ShopID, repository.RatingDelta{Sum: -int64(review.Rating), Count: -1}); err != nil {
		s.logger.ErrorContext(ctx, "rating settlement failed, restoring review",
			slog.String("review_id", reviewID),
			slog.String("shop_id", review.ShopID),
			slog.String("error", err.Error()),
		)
		if restoreErr := s.reviews.Restore(ctx, reviewID); restoreErr != nil {
			s.logger.ErrorContext(ctx, "compensating restore failed",
				slog.String("review_id", reviewID),
				slog.String("error", restoreErr.Error()),
			)
		}
		return err
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("shop_id", review.ShopID),
	)

	return nil
}

// ListShopReviews returns paginated active reviews of an active shop.
func (s *ReviewService) ListShopReviews(ctx context.Context, shopID string, page, perPage int) ([]domain.Review, int, error) {
	if _, err := s.shops.GetByID(ctx, shopID); err != nil {
		return nil, 0, fmt.Errorf("get shop for reviews: %w", err)
	}

	page, perPage = normalizePage(page, perPage)

	reviews, total, err := s.reviews.ListByShop(ctx, shopID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, total, nil
}

// ListMyReviews returns the caller's active reviews.
func (s *ReviewService) ListMyReviews(ctx context.Context, authorID string, page, perPage int) ([]domain.Review, int, error) {
	page, perPage = normalizePage(page, perPage)

	reviews, total, err := s.reviews.ListByAuthor(ctx, authorID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews by author: %w", err)
	}

	return reviews, total, nil
}
