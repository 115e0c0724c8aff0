package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khojhub/shop-service/internal/repository"
	pkgkafka "github.com/khojhub/shop-service/pkg/kafka"
)

// Consumer reconciles the product deactivation cascade from shop.deleted
// events. The inline cascade during shop deletion is best effort; this
// consumer re-runs the idempotent deactivation so a crash between the shop
// flip and the product update heals itself.
type Consumer struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewConsumer creates a new reconciliation consumer.
func NewConsumer(products repository.ProductRepository, logger *slog.Logger) *Consumer {
	return &Consumer{
		products: products,
		logger:   logger,
	}
}

// Handle processes a shop.deleted event. Errors are returned so the Kafka
// consumer retries with backoff.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != TopicShopDeleted {
		c.logger.WarnContext(ctx, "ignoring unexpected event type",
			slog.String("event_type", event.EventType),
		)
		return nil
	}

	var data ShopDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal shop.deleted data: %w", err)
	}

	affected, err := c.products.DeactivateByShop(ctx, data.ID)
	if err != nil {
		return fmt.Errorf("reconcile product cascade for shop %s: %w", data.ID, err)
	}

	if affected > 0 {
		c.logger.InfoContext(ctx, "product cascade reconciled",
			slog.String("shop_id", data.ID),
			slog.Int64("products_deactivated", affected),
		)
	}

	return nil
}
