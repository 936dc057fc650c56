package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var tables = []struct {
	name  string
	query string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			username VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NULL,
			avatar_url VARCHAR(500) NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'customer',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT NULL,
			image_url VARCHAR(500) NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NULL,
			price DECIMAL(10,2) NOT NULL,
			discount_price DECIMAL(10,2) NULL,
			category_id CHAR(36) NULL,
			image_urls JSON NULL,
			stock_quantity INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_featured BOOLEAN NOT NULL DEFAULT FALSE,
			rating DOUBLE NOT NULL DEFAULT 0,
			review_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT chk_products_stock CHECK (stock_quantity >= 0),
			INDEX idx_products_category (category_id),
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
		);`},
	{"cart_items", `
		CREATE TABLE IF NOT EXISTS cart_items (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			product_id CHAR(36) NOT NULL,
			quantity INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_cart_user_product (user_id, product_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		);`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_method VARCHAR(50) NULL,
			shipping_address JSON NULL,
			billing_address JSON NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_orders_user_created (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id CHAR(36) PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			product_id CHAR(36) NULL,
			quantity INT NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
		);`},
	{"chat_messages", `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			message TEXT NOT NULL,
			is_from_ai BOOLEAN NOT NULL DEFAULT FALSE,
			session_id VARCHAR(100) NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_chat_user_session (user_id, session_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`},
}

// AutoMigrate creates every table that does not exist yet, in dependency
// order. A failing statement is retried up to retries times, one second apart,
// which covers a database container that is still starting.
func AutoMigrate(ctx context.Context, db *sql.DB, retries int) error {
	for _, table := range tables {
		if err := execWithRetry(ctx, db, retries, table.query, time.Second); err != nil {
			return fmt.Errorf("migrate %s table: %w", table.name, err)
		}
	}
	return nil
}

func execWithRetry(ctx context.Context, db *sql.DB, retries int, query string, wait time.Duration) error {
	_, err := db.ExecContext(ctx, query)
	for i := 0; err != nil && i < retries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		_, err = db.ExecContext(ctx, query)
	}
	return err
}
