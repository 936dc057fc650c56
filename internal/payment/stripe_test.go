package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"storefront-service/internal/entity"
)

type fakeIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.created = params
	return f.intent, f.err
}

func (f *fakeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return f.intent, f.err
}

func TestCreateIntent_SendsCents(t *testing.T) {
	fake := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "secret_1"}}
	g := &StripeGateway{intents: fake}

	intent, err := g.CreateIntent(context.Background(), decimal.RequireFromString("25.10"), "usd", map[string]string{"order_id": "o1"})

	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.PaymentIntentID)
	assert.Equal(t, "secret_1", intent.ClientSecret)
	assert.Equal(t, int64(2510), *fake.created.Amount)
	assert.Equal(t, "usd", *fake.created.Currency)
	assert.Equal(t, "o1", fake.created.Metadata["order_id"])
}

func TestCreateIntent_RejectsZeroAmount(t *testing.T) {
	g := &StripeGateway{intents: &fakeIntents{}}

	_, err := g.CreateIntent(context.Background(), decimal.Zero, "usd", nil)

	assert.True(t, errors.Is(err, entity.ErrInvalidInput))
}

func TestGetIntent_ReportsState(t *testing.T) {
	fake := &fakeIntents{intent: &stripe.PaymentIntent{
		ID:       "pi_1",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Amount:   2500,
		Currency: stripe.CurrencyUSD,
		Metadata: map[string]string{"order_id": "o1"},
	}}
	g := &StripeGateway{intents: fake}

	state, err := g.GetIntent(context.Background(), "pi_1")

	require.NoError(t, err)
	assert.Equal(t, entity.IntentSucceeded, state.Status)
	assert.Equal(t, "o1", state.OrderID)
	assert.True(t, state.Amount.Equal(decimal.RequireFromString("25.00")))
}

func TestGetIntent_GatewayErrorIsUpstream(t *testing.T) {
	g := &StripeGateway{intents: &fakeIntents{err: errors.New("timeout")}}

	_, err := g.GetIntent(context.Background(), "pi_1")

	assert.True(t, errors.Is(err, entity.ErrUpstream))
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewStripeGateway("")

	_, err := g.GetIntent(context.Background(), "pi_1")

	assert.True(t, errors.Is(err, entity.ErrUpstream))
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		intent *stripe.PaymentIntent
		want   entity.IntentStatus
	}{
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}, entity.IntentSucceeded},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}, entity.IntentProcessing},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresCapture}, entity.IntentProcessing},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled}, entity.IntentCanceled},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, entity.IntentRequiresPayment},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod, LastPaymentError: &stripe.Error{Msg: "declined"}}, entity.IntentFailed},
		{&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresAction}, entity.IntentRequiresPayment},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mapStatus(tc.intent), string(tc.intent.Status))
	}
}
