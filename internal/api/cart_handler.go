package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront-service/internal/service"
)

type CartHandler struct {
	cartService *service.CartService
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ListItems --> GET /cart
func (h *CartHandler) ListItems(c echo.Context) error {
	lines, err := h.cartService.ListItems(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

// AddItem --> POST /cart
func (h *CartHandler) AddItem(c echo.Context) error {
	req := cartItemRequest{Quantity: 1}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	line, err := h.cartService.AddItem(c.Request().Context(), currentUser(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, line)
}

// UpdateItem --> PUT /cart/:id
func (h *CartHandler) UpdateItem(c echo.Context) error {
	req := cartItemRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	line, err := h.cartService.UpdateItem(c.Request().Context(), currentUser(c).ID, c.Param("id"), req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, line)
}

// RemoveItem --> DELETE /cart/:id
func (h *CartHandler) RemoveItem(c echo.Context) error {
	if err := h.cartService.RemoveItem(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

// Clear --> DELETE /cart
func (h *CartHandler) Clear(c echo.Context) error {
	if err := h.cartService.Clear(c.Request().Context(), currentUser(c).ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Cart cleared"})
}

// Count --> GET /cart/count
func (h *CartHandler) Count(c echo.Context) error {
	count, err := h.cartService.Count(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}
