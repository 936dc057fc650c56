package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"storefront-service/internal/entity"
)

const orderColumns = `id, user_id, total_amount, status, payment_status, payment_method, shipping_address, billing_address, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

// WithinTx runs fn inside one database transaction. The transaction commits
// only if fn returns nil.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error {
	// Start a transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	// Commit the transaction
	return tx.Commit()
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	return getOrder(ctx, r.db, orderID, userID, false)
}

func (r *OrderRepository) ListOrders(ctx context.Context, userID string) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*entity.Order{}
	byID := map[string]*entity.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]any, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	itemQuery := `SELECT id, order_id, product_id, quantity, price, created_at FROM order_items WHERE order_id IN (` + placeholders(len(ids)) + `) ORDER BY created_at, id`
	itemRows, err := r.db.QueryContext(ctx, itemQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		line, err := scanOrderLine(itemRows)
		if err != nil {
			return nil, err
		}
		if order, ok := byID[line.OrderID]; ok {
			order.Items = append(order.Items, *line)
		}
	}
	return orders, itemRows.Err()
}

func (r *OrderRepository) SetStatus(ctx context.Context, orderID string, from, to entity.OrderStatus, payment entity.PaymentStatus) (bool, error) {
	query := `UPDATE orders SET status = ?, payment_status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, to, payment, orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type checkoutTx struct {
	tx *sql.Tx
}

// ListCartLines locks the caller's cart rows until the checkout ends. A second
// checkout of the same cart blocks here and then finds it empty.
func (t *checkoutTx) ListCartLines(ctx context.Context, userID string) ([]entity.CartLine, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at FROM cart_items WHERE user_id = ? ORDER BY created_at, id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []entity.CartLine
	for rows.Next() {
		var line entity.CartLine
		if err := rows.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// LockProducts takes the row locks in ascending id order so that two
// checkouts touching the same products cannot deadlock each other.
func (t *checkoutTx) LockProducts(ctx context.Context, productIDs []string) (map[string]*entity.Product, error) {
	products := map[string]*entity.Product{}
	if len(productIDs) == 0 {
		return products, nil
	}

	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(len(args)) + `) ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	return products, rows.Err()
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	query := `UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`
	res, err := t.tx.ExecContext(ctx, query, quantity, productID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &entity.InsufficientStockError{ProductID: productID, Requested: quantity}
	}
	return nil
}

func (t *checkoutTx) IncrementStock(ctx context.Context, productID string, quantity int) error {
	query := `UPDATE products SET stock_quantity = stock_quantity + ? WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, query, quantity, productID)
	return err
}

func (t *checkoutTx) InsertOrder(ctx context.Context, order *entity.Order) error {
	orderQuery := `INSERT INTO orders (id, user_id, total_amount, status, payment_status, payment_method, shipping_address, billing_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		order.PaymentMethod, nullJSON(order.ShippingAddress), nullJSON(order.BillingAddress))
	if err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}

	// Insert order items with batch
	itemQuery := `INSERT INTO order_items (id, order_id, product_id, quantity, price) VALUES `
	var values []any
	for _, item := range order.Items {
		itemQuery += "(?, ?, ?, ?, ?),"
		values = append(values, item.ID, order.ID, item.ProductID, item.Quantity, item.Price)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = t.tx.ExecContext(ctx, itemQuery, values...)
	return err
}

func (t *checkoutTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

func (t *checkoutTx) GetOrderForUpdate(ctx context.Context, orderID, userID string) (*entity.Order, error) {
	return getOrder(ctx, t.tx, orderID, userID, true)
}

func (t *checkoutTx) UpdateOrderStatus(ctx context.Context, orderID string, status entity.OrderStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return err
	}
	return expectRow(res, "order "+orderID)
}

func getOrder(ctx context.Context, db DBTX, orderID, userID string, forUpdate bool) (*entity.Order, error) {
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? AND user_id = ?`
	if forUpdate {
		orderQuery += ` FOR UPDATE`
	}
	order, err := scanOrder(db.QueryRowContext(ctx, orderQuery, orderID, userID))
	if err != nil {
		return nil, notFound(err, "order "+orderID)
	}

	itemQuery := `SELECT id, order_id, product_id, quantity, price, created_at FROM order_items WHERE order_id = ? ORDER BY created_at, id`
	rows, err := db.QueryContext(ctx, itemQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		line, err := scanOrderLine(rows)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *line)
	}
	return order, rows.Err()
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		order         entity.Order
		userID        sql.NullString
		paymentMethod sql.NullString
		shipping      []byte
		billing       []byte
	)
	err := row.Scan(&order.ID, &userID, &order.TotalAmount, &order.Status, &order.PaymentStatus, &paymentMethod,
		&shipping, &billing, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		order.UserID = &userID.String
	}
	order.PaymentMethod = paymentMethod.String
	order.ShippingAddress = shipping
	order.BillingAddress = billing
	order.Items = []entity.OrderLine{}
	return &order, nil
}

func scanOrderLine(row rowScanner) (*entity.OrderLine, error) {
	var (
		line      entity.OrderLine
		productID sql.NullString
	)
	if err := row.Scan(&line.ID, &line.OrderID, &productID, &line.Quantity, &line.Price, &line.CreatedAt); err != nil {
		return nil, err
	}
	if productID.Valid {
		line.ProductID = &productID.String
	}
	return &line, nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
