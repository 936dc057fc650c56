package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/entity"
	"storefront-service/internal/events"
	"storefront-service/internal/repository"
)

// storeCurrency is the currency catalog prices are denominated in. Intents in
// any other currency would charge a different value for the same number.
const storeCurrency = "usd"

// OrderService turns carts into orders and drives them through payment and
// cancellation. It keeps no state between calls; every invariant is enforced
// inside a storage transaction.
type OrderService struct {
	orders    repository.OrderStore
	gateway   PaymentGateway
	publisher EventPublisher
	guard     IdempotencyGuard
	recorder  CheckoutRecorder
}

// NewOrderService creates a new instance of OrderService. publisher, guard and
// recorder may be nil.
func NewOrderService(orders repository.OrderStore, gateway PaymentGateway, publisher EventPublisher, guard IdempotencyGuard, recorder CheckoutRecorder) *OrderService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &OrderService{
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		guard:     guard,
		recorder:  recorder,
	}
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*entity.Order, error) {
	orders, err := s.orders.ListOrders(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing orders of user %s", userID)
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	return s.orders.GetOrder(ctx, orderID, userID)
}

// CreateOrder places an order for everything in the user's cart. Stock checks,
// stock decrements, the order rows and the cart drain commit together or not
// at all.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req entity.CreateOrderRequest) (*entity.Order, error) {
	if req.IdempotencyKey != "" && s.guard != nil {
		claimed, err := s.guard.Claim(ctx, req.IdempotencyKey)
		if err != nil {
			logger.Error().Err(err).Msg("Error claiming idempotency key")
			return nil, err
		}
		if !claimed {
			s.recorder.ObserveCheckout("create", outcomeOf(entity.ErrConflict))
			return nil, fmt.Errorf("idempotency key %q already used: %w", req.IdempotencyKey, entity.ErrConflict)
		}
	}

	order, err := s.placeOrder(ctx, userID, req)
	s.recorder.ObserveCheckout("create", outcomeOf(err))
	if err != nil {
		if req.IdempotencyKey != "" && s.guard != nil {
			if relErr := s.guard.Release(ctx, req.IdempotencyKey); relErr != nil {
				logger.Error().Err(relErr).Msg("Error releasing idempotency key")
			}
		}
		var stockErr *entity.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			logger.Warn().Msgf("Product %s out of stock for user %s", stockErr.ProductID, userID)
		case errors.Is(err, entity.ErrEmptyCart):
			logger.Warn().Msgf("User %s checked out an empty cart", userID)
		default:
			logger.Error().Err(err).Msg("Error creating order")
		}
		return nil, err
	}

	logger.Info().Msgf("Order %s created for user %s, total %s", order.ID, userID, order.TotalAmount.StringFixed(2))
	s.publish(ctx, order, events.EventOrderCreated)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID string, req entity.CreateOrderRequest) (*entity.Order, error) {
	var order *entity.Order
	err := s.orders.WithinTx(ctx, func(ctx context.Context, tx repository.CheckoutTx) error {
		lines, err := tx.ListCartLines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return entity.ErrEmptyCart
		}

		productIDs := make([]string, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := tx.LockProducts(ctx, productIDs)
		if err != nil {
			return err
		}

		order, err = buildOrder(userID, req, lines, products)
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.DecrementStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return tx.ClearCart(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder puts the stock of a pending or confirmed order back and marks it
// cancelled. Lines whose product no longer exists are skipped. Cancelling a
// paid order does not refund it; consumers of the cancelled event see
// payment_status=paid and act on it.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	var order *entity.Order
	err := s.orders.WithinTx(ctx, func(ctx context.Context, tx repository.CheckoutTx) error {
		current, err := tx.GetOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if !current.Status.Cancellable() {
			return fmt.Errorf("order %s is %s: %w", orderID, current.Status, entity.ErrInvalidState)
		}

		var productIDs []string
		for _, item := range current.Items {
			if item.ProductID != nil {
				productIDs = append(productIDs, *item.ProductID)
			}
		}
		products, err := tx.LockProducts(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, item := range current.Items {
			if item.ProductID == nil {
				continue
			}
			if _, ok := products[*item.ProductID]; !ok {
				continue
			}
			if err := tx.IncrementStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, entity.OrderStatusCancelled); err != nil {
			return err
		}
		current.Status = entity.OrderStatusCancelled
		order = current
		return nil
	})
	s.recorder.ObserveCheckout("cancel", outcomeOf(err))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) || errors.Is(err, entity.ErrInvalidState) {
			logger.Warn().Msgf("Order %s not cancelled: %v", orderID, err)
		} else {
			logger.Error().Err(err).Msgf("Error cancelling order %s", orderID)
		}
		return nil, err
	}

	s.publish(ctx, order, events.EventOrderCancelled)
	return order, nil
}

// RequestPaymentIntent opens a gateway intent for the order's own total. The
// order itself is not touched.
func (s *OrderService) RequestPaymentIntent(ctx context.Context, orderID, userID, currency string) (*entity.PaymentIntent, error) {
	order, err := s.orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, entity.ErrInvalidState)
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = storeCurrency
	}
	if currency != storeCurrency {
		return nil, fmt.Errorf("currency %q is not accepted, orders are charged in %s: %w", currency, storeCurrency, entity.ErrInvalidInput)
	}
	metadata := map[string]string{
		"order_id": order.ID,
		"user_id":  userID,
	}

	intent, err := s.gateway.CreateIntent(ctx, order.TotalAmount, currency, metadata)
	s.recorder.ObserveCheckout("payment_intent", outcomeOf(err))
	if err != nil {
		logger.Error().Err(err).Msgf("Error creating payment intent for order %s", orderID)
		return nil, err
	}
	return intent, nil
}

// ConfirmPayment marks the order confirmed and paid when the gateway reports
// the intent as succeeded. The gateway is asked every time, so the call can be
// retried safely and a client cannot claim a payment the gateway has not seen.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, userID, intentID string) (*entity.Order, error) {
	order, err := s.confirmPayment(ctx, orderID, userID, intentID)
	s.recorder.ObserveCheckout("confirm_payment", outcomeOf(err))
	return order, err
}

func (s *OrderService) confirmPayment(ctx context.Context, orderID, userID, intentID string) (*entity.Order, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, fmt.Errorf("payment_intent_id is required: %w", entity.ErrInvalidInput)
	}
	order, err := s.orders.GetOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	state, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error retrieving payment intent %s", intentID)
		return nil, err
	}
	if state.OrderID != "" && state.OrderID != order.ID {
		logger.Warn().Msgf("Payment intent %s belongs to order %s, not %s", intentID, state.OrderID, order.ID)
		return nil, fmt.Errorf("intent %s was not issued for order %s: %w", intentID, order.ID, entity.ErrPaymentNotSucceeded)
	}
	if state.Status != entity.IntentSucceeded {
		return nil, fmt.Errorf("intent %s is %s: %w", intentID, state.Status, entity.ErrPaymentNotSucceeded)
	}
	if !strings.EqualFold(state.Currency, storeCurrency) {
		logger.Warn().Msgf("Payment intent %s is in %q, order %s is charged in %s", intentID, state.Currency, order.ID, storeCurrency)
		return nil, fmt.Errorf("intent %s is in %q: %w", intentID, state.Currency, entity.ErrPaymentNotSucceeded)
	}
	if !state.Amount.Equal(order.TotalAmount) {
		return nil, fmt.Errorf("intent %s charged %s, order total is %s: %w", intentID, state.Amount, order.TotalAmount, entity.ErrPaymentNotSucceeded)
	}

	if order.Status == entity.OrderStatusConfirmed && order.PaymentStatus == entity.PaymentStatusPaid {
		return order, nil
	}
	if order.Status != entity.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, entity.ErrInvalidState)
	}

	updated, err := s.orders.SetStatus(ctx, order.ID, entity.OrderStatusPending, entity.OrderStatusConfirmed, entity.PaymentStatusPaid)
	if err != nil {
		logger.Error().Err(err).Msgf("Error confirming order %s", orderID)
		return nil, err
	}
	if !updated {
		// Someone else moved the order first; report what it is now.
		current, err := s.orders.GetOrder(ctx, orderID, userID)
		if err != nil {
			return nil, err
		}
		if current.Status == entity.OrderStatusConfirmed && current.PaymentStatus == entity.PaymentStatusPaid {
			return current, nil
		}
		return nil, fmt.Errorf("order %s is %s: %w", orderID, current.Status, entity.ErrInvalidState)
	}

	order.Status = entity.OrderStatusConfirmed
	order.PaymentStatus = entity.PaymentStatusPaid
	logger.Info().Msgf("Payment %s confirmed for order %s", intentID, orderID)
	s.publish(ctx, order, events.EventOrderConfirmed)
	return order, nil
}

// publish is best effort: the order is already committed, so a broker outage
// is logged rather than reported to the caller.
func (s *OrderService) publish(ctx context.Context, order *entity.Order, eventType string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, order, eventType); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for order %s", eventType, order.ID)
	}
}
