package service

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entity.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*entity.IntentState, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, order *entity.Order, eventType string) error
}

type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type ProductCache interface {
	Get(ctx context.Context, id string) (*entity.Product, bool, error)
	Set(ctx context.Context, product *entity.Product) error
	Invalidate(ctx context.Context, ids ...string) error
}

type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// CheckoutRecorder counts order operations by outcome.
type CheckoutRecorder interface {
	ObserveCheckout(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCheckout(string, string) {}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, entity.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, entity.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, entity.ErrPaymentNotSucceeded):
		return "payment_not_succeeded"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrConflict):
		return "conflict"
	case errors.Is(err, entity.ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}
