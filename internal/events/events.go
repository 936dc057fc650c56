package events

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront-service/internal/entity"
)

const (
	EventOrderCreated   = "created"
	EventOrderConfirmed = "confirmed"
	EventOrderCancelled = "cancelled"
)

type OrderEvent struct {
	EventID       string               `json:"event_id"`
	Type          string               `json:"type"`
	OrderID       string               `json:"order_id"`
	UserID        *string              `json:"user_id"`
	Status        entity.OrderStatus   `json:"status"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Items         []entity.OrderLine   `json:"items"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ProductIDs lists the still-existing products referenced by the event.
func (e OrderEvent) ProductIDs() []string {
	var ids []string
	for _, item := range e.Items {
		if item.ProductID != nil {
			ids = append(ids, *item.ProductID)
		}
	}
	return ids
}
