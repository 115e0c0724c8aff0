package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khojhub/shop-service/internal/domain"
	pkgkafka "github.com/khojhub/shop-service/pkg/kafka"
)

// Kafka topics for shop and review domain events.
var (
	TopicShopCreated   = pkgkafka.Topic("shop", "created")
	TopicShopDeleted   = pkgkafka.Topic("shop", "deleted")
	TopicReviewCreated = pkgkafka.Topic("review", "created")
	TopicReviewDeleted = pkgkafka.Topic("review", "deleted")
)

// Aggregate type constants.
const (
	AggregateTypeShop   = "shop"
	AggregateTypeReview = "review"
)

// SourceShopService identifies events originating from this service.
const SourceShopService = "shop-service"

// ShopCreatedData is the payload for a shop.created event.
type ShopCreatedData struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	Name       string  `json:"name"`
	CategoryID *string `json:"category_id,omitempty"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
}

// ShopDeletedData is the payload for a shop.deleted event. Consumers use it
// to reconcile the product deactivation cascade.
type ShopDeletedData struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ID       string `json:"id"`
	ShopID   string `json:"shop_id"`
	AuthorID string `json:"author_id"`
	Rating   int    `json:"rating"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ID     string `json:"id"`
	ShopID string `json:"shop_id"`
	Rating int    `json:"rating"`
}

// Producer publishes shop and review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the shop service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishShopCreated publishes a shop.created event.
func (p *Producer) PublishShopCreated(ctx context.Context, shop *domain.Shop) error {
	data := ShopCreatedData{
		ID:         shop.ID,
		OwnerID:    shop.OwnerID,
		Name:       shop.Name,
		CategoryID: shop.CategoryID,
		Longitude:  shop.Longitude,
		Latitude:   shop.Latitude,
	}

	return p.publish(ctx, TopicShopCreated, shop.ID, AggregateTypeShop, data)
}

// PublishShopDeleted publishes a shop.deleted event. Always emitted after a
// successful soft-deletion, even when the inline product cascade succeeded,
// so the reconciliation consumer can verify the cascade.
func (p *Producer) PublishShopDeleted(ctx context.Context, shopID, ownerID string) error {
	data := ShopDeletedData{ID: shopID, OwnerID: ownerID}
	return p.publish(ctx, TopicShopDeleted, shopID, AggregateTypeShop, data)
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:       review.ID,
		ShopID:   review.ShopID,
		AuthorID: review.AuthorID,
		Rating:   review.Rating,
	}

	return p.publish(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, data)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	data := ReviewDeletedData{
		ID:     review.ID,
		ShopID: review.ShopID,
		Rating: review.Rating,
	}

	return p.publish(ctx, TopicReviewDeleted, review.ID, AggregateTypeReview, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceShopService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
