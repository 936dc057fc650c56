package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-service/internal/entity"
	"storefront-service/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// ListOrders --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	orders, err := h.orderService.ListOrders(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CreateOrder --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	req := entity.CreateOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	order, err := h.orderService.CreateOrder(ctx, currentUser(c).ID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CreatePaymentIntent --> POST /orders/:id/payment-intent
func (h *OrderHandler) CreatePaymentIntent(c echo.Context) error {
	body := struct {
		Currency string `json:"currency"`
	}{}
	if err := c.Bind(&body); err != nil {
		return invalidPayload(c)
	}

	intent, err := h.orderService.RequestPaymentIntent(c.Request().Context(), c.Param("id"), currentUser(c).ID, body.Currency)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, intent)
}

// ConfirmPayment --> POST /orders/:id/confirm-payment
// The intent id is read from the payment_intent_id query parameter or body.
func (h *OrderHandler) ConfirmPayment(c echo.Context) error {
	body := struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}{}
	if err := c.Bind(&body); err != nil {
		return invalidPayload(c)
	}
	if body.PaymentIntentID == "" {
		body.PaymentIntentID = c.QueryParam("payment_intent_id")
	}

	order, err := h.orderService.ConfirmPayment(c.Request().Context(), c.Param("id"), currentUser(c).ID, body.PaymentIntentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":        "Payment confirmed",
		"order_status":   string(order.Status),
		"payment_status": string(order.PaymentStatus),
	})
}

// CancelOrder --> POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	order, err := h.orderService.CancelOrder(c.Request().Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
