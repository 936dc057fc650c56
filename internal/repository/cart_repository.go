package repository

import (
	"context"
	"database/sql"

	"storefront-service/internal/entity"
)

type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db}
}

// ListLines returns the user's cart lines joined with their products.
func (r *CartRepository) ListLines(ctx context.Context, userID string) ([]entity.CartLine, error) {
	query := `SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		p.id, p.name, p.description, p.price, p.discount_price, p.category_id, p.image_urls, p.stock_quantity,
		p.is_active, p.is_featured, p.rating, p.review_count, p.created_at, p.updated_at
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ? ORDER BY c.created_at, c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []entity.CartLine{}
	for rows.Next() {
		line, err := scanCartLineWithProduct(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

func (r *CartRepository) GetLine(ctx context.Context, lineID, userID string) (*entity.CartLine, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at FROM cart_items WHERE id = ? AND user_id = ?`
	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, lineID, userID))
	if err != nil {
		return nil, notFound(err, "cart item "+lineID)
	}
	return line, nil
}

func (r *CartRepository) FindLine(ctx context.Context, userID, productID string) (*entity.CartLine, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at FROM cart_items WHERE user_id = ? AND product_id = ?`
	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, userID, productID))
	if err != nil {
		return nil, notFound(err, "cart item for product "+productID)
	}
	return line, nil
}

func (r *CartRepository) UpsertLine(ctx context.Context, line *entity.CartLine) (*entity.CartLine, error) {
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
	if _, err := r.db.ExecContext(ctx, query, line.ID, line.UserID, line.ProductID, line.Quantity); err != nil {
		return nil, err
	}
	return r.FindLine(ctx, line.UserID, line.ProductID)
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, lineID, userID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, quantity, lineID, userID)
	if err != nil {
		return err
	}
	return expectRow(res, "cart item "+lineID)
}

func (r *CartRepository) DeleteLine(ctx context.Context, lineID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, lineID, userID)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

func (r *CartRepository) CountItems(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

func scanCartLine(row rowScanner) (*entity.CartLine, error) {
	var line entity.CartLine
	if err := row.Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return nil, err
	}
	return &line, nil
}

func scanCartLineWithProduct(rows *sql.Rows) (*entity.CartLine, error) {
	var line entity.CartLine
	product, err := scanProduct(prefixScanner{rows: rows, prefix: []any{
		&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt,
	}})
	if err != nil {
		return nil, err
	}
	line.Product = product
	return &line, nil
}

// prefixScanner scans leading columns into prefix before handing the rest to
// the wrapped scan call.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.rows.Scan(append(append([]any{}, s.prefix...), dest...)...)
}
