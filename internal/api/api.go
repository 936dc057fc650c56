package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Users    *UserHandler
	Products *ProductHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Chat     *ChatHandler
	Upload   *UploadHandler
}

// RegisterRoutes mounts every route. Protected groups run JWT and then LoadUser.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, users UserLoader) {
	auth := []echo.MiddlewareFunc{JWT(jwtSecret), LoadUser(users)}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "storefront-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.POST("/auth/register", h.Users.Register)
	e.POST("/auth/login", h.Users.Login)
	e.GET("/auth/me", h.Users.Me, auth...)

	products := e.Group("/products")
	products.GET("", h.Products.ListProducts)
	products.GET("/categories", h.Products.ListCategories)
	products.GET("/category/:id", h.Products.ListByCategory)
	products.GET("/search", h.Products.Search)
	products.GET("/featured", h.Products.Featured)
	products.GET("/:id", h.Products.GetProduct)
	admin := append(auth, RequireAdmin)
	products.POST("", h.Products.CreateProduct, admin...)
	products.PUT("/:id", h.Products.UpdateProduct, admin...)
	products.DELETE("/:id", h.Products.DeleteProduct, admin...)

	cart := e.Group("/cart", auth...)
	cart.GET("", h.Cart.ListItems)
	cart.POST("", h.Cart.AddItem)
	cart.GET("/count", h.Cart.Count)
	cart.PUT("/:id", h.Cart.UpdateItem)
	cart.DELETE("/:id", h.Cart.RemoveItem)
	cart.DELETE("", h.Cart.Clear)

	orders := e.Group("/orders", auth...)
	orders.GET("", h.Orders.ListOrders)
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("/:id", h.Orders.GetOrder)
	orders.POST("/:id/payment-intent", h.Orders.CreatePaymentIntent)
	orders.POST("/:id/confirm-payment", h.Orders.ConfirmPayment)
	orders.POST("/:id/cancel", h.Orders.CancelOrder)

	// Browsers cannot set headers on the upgrade request, so the socket takes
	// its token from ?token= and may only be opened for the token's own user.
	e.GET("/api/chat/ws/:user_id", h.Chat.WebSocket, QueryJWT(jwtSecret), LoadUser(users))
	chat := e.Group("/api/chat", auth...)
	chat.POST("", h.Chat.Send)
	chat.GET("/history/:session_id", h.Chat.History)
	chat.GET("/sessions", h.Chat.Sessions)
	chat.DELETE("/session/:session_id", h.Chat.DeleteSession)

	upload := e.Group("/upload", auth...)
	upload.POST("/single", h.Upload.Single)
	upload.POST("/multiple", h.Upload.Multiple)
	upload.DELETE("", h.Upload.Delete)
}
