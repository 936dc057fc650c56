package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Order struct {
	ID              string          `json:"id"`
	UserID          *string         `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress json.RawMessage `json:"shipping_address"`
	BillingAddress  json.RawMessage `json:"billing_address"`
	Items           []OrderLine     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderLine is immutable once written. Price is the effective unit price at the
// moment the order was placed; ProductID becomes nil if the product is removed.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID *string         `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subtotal is the snapshot price times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CreateOrderRequest struct {
	ShippingAddress json.RawMessage `json:"shipping_address"`
	BillingAddress  json.RawMessage `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	IdempotencyKey  string          `json:"-"`
}

// IntentStatus is the payment gateway's view of a payment attempt.
type IntentStatus string

const (
	IntentRequiresPayment IntentStatus = "requires_payment"
	IntentProcessing      IntentStatus = "processing"
	IntentSucceeded       IntentStatus = "succeeded"
	IntentFailed          IntentStatus = "failed"
	IntentCanceled        IntentStatus = "canceled"
)

type PaymentIntent struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// IntentState is what the gateway reports about an intent.
type IntentState struct {
	ID       string
	Status   IntentStatus
	Amount   decimal.Decimal
	Currency string
	OrderID  string
}

/*
MySQL tables

CREATE TABLE orders (
	id CHAR(36) PRIMARY KEY,
	user_id CHAR(36) NULL,
	total_amount DECIMAL(10,2) NOT NULL,
	status VARCHAR(20) NOT NULL,
	payment_status VARCHAR(20) NOT NULL,
	...
);

CREATE TABLE order_items (
	id CHAR(36) PRIMARY KEY,
	order_id CHAR(36) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id CHAR(36) NULL REFERENCES products(id) ON DELETE SET NULL,
	quantity INT NOT NULL,
	price DECIMAL(10,2) NOT NULL
);
*/
