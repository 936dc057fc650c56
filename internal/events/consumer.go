package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, ids ...string) error
}

// Consumer listens to order events and drops the cached copies of every
// product whose stock the event changed.
type Consumer struct {
	reader    messageReader
	cache     CacheInvalidator
	retryWait time.Duration
}

func NewConsumer(reader *kafka.Reader, cache CacheInvalidator) *Consumer {
	return &Consumer{reader: reader, cache: cache, retryWait: time.Second}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Msgf("Error reading message: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryWait):
			}
			continue
		}

		c.processMessage(ctx, msg)
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Msgf("Error unmarshalling message: %v", err)
		return
	}

	// key -> "order.created.<id>" or "order.cancelled.<id>"
	parts := strings.SplitN(string(msg.Key), ".", 3)
	if len(parts) != 3 || parts[0] != "order" {
		log.Error().Msgf("Unexpected order event key: %s", msg.Key)
		return
	}

	switch parts[1] {
	case EventOrderCreated, EventOrderCancelled:
		if err := c.cache.Invalidate(ctx, event.ProductIDs()...); err != nil {
			log.Error().Msgf("Error invalidating products of order %s: %v", event.OrderID, err)
		}
	case EventOrderConfirmed:
		// stock is unchanged by payment
	default:
		log.Error().Msgf("Unknown order event: %s", parts[1])
	}
}
