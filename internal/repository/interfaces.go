package repository

import (
	"context"
	"database/sql"

	"storefront-service/internal/entity"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CheckoutTx is the view of storage available inside a checkout or
// cancellation transaction. Every write made through it commits or rolls back
// together.
type CheckoutTx interface {
	ListCartLines(ctx context.Context, userID string) ([]entity.CartLine, error)
	// LockProducts loads and row-locks the given products. Unknown ids are
	// absent from the result.
	LockProducts(ctx context.Context, productIDs []string) (map[string]*entity.Product, error)
	// DecrementStock fails with *entity.InsufficientStockError when the
	// product's stock would drop below zero.
	DecrementStock(ctx context.Context, productID string, quantity int) error
	IncrementStock(ctx context.Context, productID string, quantity int) error
	InsertOrder(ctx context.Context, order *entity.Order) error
	ClearCart(ctx context.Context, userID string) error
	GetOrderForUpdate(ctx context.Context, orderID, userID string) (*entity.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status entity.OrderStatus) error
}

type OrderStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error
	GetOrder(ctx context.Context, orderID, userID string) (*entity.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*entity.Order, error)
	// SetStatus moves an order from one status to another and reports whether
	// the row was in the expected status.
	SetStatus(ctx context.Context, orderID string, from, to entity.OrderStatus, payment entity.PaymentStatus) (bool, error)
}

type CartStore interface {
	ListLines(ctx context.Context, userID string) ([]entity.CartLine, error)
	GetLine(ctx context.Context, lineID, userID string) (*entity.CartLine, error)
	FindLine(ctx context.Context, userID, productID string) (*entity.CartLine, error)
	// UpsertLine inserts the line or adds its quantity to the existing line for
	// the same (user, product).
	UpsertLine(ctx context.Context, line *entity.CartLine) (*entity.CartLine, error)
	UpdateQuantity(ctx context.Context, lineID, userID string, quantity int) error
	DeleteLine(ctx context.Context, lineID, userID string) error
	Clear(ctx context.Context, userID string) error
	CountItems(ctx context.Context, userID string) (int, error)
}

type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	ListProducts(ctx context.Context, filter entity.ProductFilter) ([]*entity.Product, error)
	CreateProduct(ctx context.Context, product *entity.Product) error
	UpdateProduct(ctx context.Context, product *entity.Product) error
	DeactivateProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*entity.Category, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *entity.User) error
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
}

type ChatStore interface {
	InsertMessage(ctx context.Context, msg *entity.ChatMessage) error
	ListMessages(ctx context.Context, userID, sessionID string, skip, limit int) ([]*entity.ChatMessage, error)
	ListSessions(ctx context.Context, userID string) ([]string, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}
