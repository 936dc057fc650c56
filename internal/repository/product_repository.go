package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"storefront-service/internal/entity"
)

const productColumns = `id, name, description, price, discount_price, category_id, image_urls, stock_quantity, is_active, is_featured, rating, review_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		p           entity.Product
		description sql.NullString
		categoryID  sql.NullString
		imageURLs   []byte
	)
	err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &p.DiscountPrice, &categoryID, &imageURLs,
		&p.StockQuantity, &p.IsActive, &p.IsFeatured, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	p.ImageURLs = []string{}
	if len(imageURLs) > 0 {
		if err := json.Unmarshal(imageURLs, &p.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image_urls of product %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db}
}

// GetProduct returns the product regardless of its active flag.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	return product, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context, filter entity.ProductFilter) ([]*entity.Product, error) {
	conditions := []string{"is_active = TRUE"}
	var args []any
	if filter.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, term, term)
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "is_featured = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*entity.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *entity.Product) error {
	imageURLs, err := json.Marshal(product.ImageURLs)
	if err != nil {
		return err
	}
	query := `INSERT INTO products (id, name, description, price, discount_price, category_id, image_urls, stock_quantity, is_active, is_featured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, product.ID, product.Name, product.Description, product.Price, product.DiscountPrice,
		product.CategoryID, imageURLs, product.StockQuantity, product.IsActive, product.IsFeatured)
	return err
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, product *entity.Product) error {
	imageURLs, err := json.Marshal(product.ImageURLs)
	if err != nil {
		return err
	}
	query := `UPDATE products SET name = ?, description = ?, price = ?, discount_price = ?, category_id = ?, image_urls = ?,
		stock_quantity = ?, is_active = ?, is_featured = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, product.Name, product.Description, product.Price, product.DiscountPrice,
		product.CategoryID, imageURLs, product.StockQuantity, product.IsActive, product.IsFeatured, product.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "product "+product.ID)
}

// DeactivateProduct soft-deletes the product. Order lines keep pointing at it.
func (r *ProductRepository) DeactivateProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = FALSE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "product "+id)
}

func (r *ProductRepository) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	query := `SELECT id, name, description, image_url, is_active, created_at FROM categories WHERE is_active = TRUE ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*entity.Category{}
	for rows.Next() {
		var (
			c           entity.Category
			description sql.NullString
			imageURL    sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &description, &imageURL, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Description = description.String
		c.ImageURL = imageURL.String
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// expectRow turns an UPDATE/DELETE that touched nothing into ErrNotFound.
func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, entity.ErrNotFound)
	}
	return nil
}
