package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-service/internal/entity"
)

// buildOrder turns locked cart lines into a pending order whose lines carry
// the effective price of each product at this instant. It fails on the first
// product that cannot cover the quantity requested across the cart.
func buildOrder(userID string, req entity.CreateOrderRequest, lines []entity.CartLine, products map[string]*entity.Product) (*entity.Order, error) {
	requested := map[string]int{}
	for _, line := range lines {
		requested[line.ProductID] += line.Quantity
	}

	now := time.Now().UTC()
	order := &entity.Order{
		ID:              uuid.NewString(),
		UserID:          &userID,
		Status:          entity.OrderStatusPending,
		PaymentStatus:   entity.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Items:           make([]entity.OrderLine, 0, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("cart item %s has quantity %d: %w", line.ID, line.Quantity, entity.ErrInvalidInput)
		}
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			return nil, &entity.InsufficientStockError{ProductID: line.ProductID, Requested: requested[line.ProductID]}
		}
		if product.StockQuantity < requested[line.ProductID] {
			return nil, &entity.InsufficientStockError{
				ProductID: product.ID,
				Requested: requested[line.ProductID],
				Available: product.StockQuantity,
			}
		}

		productID := product.ID
		order.Items = append(order.Items, entity.OrderLine{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: &productID,
			Quantity:  line.Quantity,
			Price:     product.EffectivePrice(),
			CreatedAt: now,
		})
	}

	order.TotalAmount = orderTotal(order.Items)
	return order, nil
}

func orderTotal(items []entity.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
