package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"storefront-service/internal/entity"
)

const serviceName = "payment gateway"

var ErrNotConfigured = errors.New("stripe secret key is not configured")

type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway creates and inspects Stripe payment intents. Every failure is
// returned as *entity.UpstreamError.
type StripeGateway struct {
	intents intentClient
}

// NewStripeGateway returns a gateway that fails every call when secretKey is
// empty, so the rest of the storefront still runs without payments.
func NewStripeGateway(secretKey string) *StripeGateway {
	if secretKey == "" {
		return &StripeGateway{}
	}
	return &StripeGateway{intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entity.PaymentIntent, error) {
	if g.intents == nil {
		return nil, entity.NewUpstreamError(serviceName, ErrNotConfigured)
	}
	cents := MinorUnits(amount)
	if cents <= 0 {
		return nil, fmt.Errorf("payment amount %s: %w", amount, entity.ErrInvalidInput)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, entity.NewUpstreamError(serviceName, err)
	}
	return &entity.PaymentIntent{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

// GetIntent asks Stripe for the authoritative state of an intent. Calling it
// has no side effects.
func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*entity.IntentState, error) {
	if g.intents == nil {
		return nil, entity.NewUpstreamError(serviceName, ErrNotConfigured)
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.intents.Get(intentID, params)
	if err != nil {
		return nil, entity.NewUpstreamError(serviceName, err)
	}
	return &entity.IntentState{
		ID:       intent.ID,
		Status:   mapStatus(intent),
		Amount:   decimal.New(intent.Amount, -2),
		Currency: string(intent.Currency),
		OrderID:  intent.Metadata["order_id"],
	}, nil
}

// MinorUnits converts a decimal amount into cents. Only two-decimal currencies
// are charged, so the factor is fixed.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func mapStatus(intent *stripe.PaymentIntent) entity.IntentStatus {
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return entity.IntentSucceeded
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return entity.IntentProcessing
	case stripe.PaymentIntentStatusCanceled:
		return entity.IntentCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// Stripe falls back here after a declined attempt.
		if intent.LastPaymentError != nil {
			return entity.IntentFailed
		}
		return entity.IntentRequiresPayment
	default:
		return entity.IntentRequiresPayment
	}
}
