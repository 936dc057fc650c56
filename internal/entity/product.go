package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	CategoryID    *string             `json:"category_id"`
	ImageURLs     []string            `json:"image_urls"`
	StockQuantity int                 `json:"stock_quantity"`
	IsActive      bool                `json:"is_active"`
	IsFeatured    bool                `json:"is_featured"`
	Rating        float64             `json:"rating"`
	ReviewCount   int                 `json:"review_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// EffectivePrice is the discount price when one is set, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductFilter narrows catalog listings. Inactive products are never listed.
type ProductFilter struct {
	CategoryID   string
	Search       string
	FeaturedOnly bool
	Skip         int
	Limit        int
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Price         *decimal.Decimal     `json:"price"`
	DiscountPrice *decimal.NullDecimal `json:"discount_price"`
	CategoryID    *string              `json:"category_id"`
	ImageURLs     []string             `json:"image_urls"`
	StockQuantity *int                 `json:"stock_quantity"`
	IsActive      *bool                `json:"is_active"`
	IsFeatured    *bool                `json:"is_featured"`
}

// Apply copies the set fields of u onto p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.DiscountPrice != nil {
		p.DiscountPrice = *u.DiscountPrice
	}
	if u.CategoryID != nil {
		p.CategoryID = u.CategoryID
	}
	if u.ImageURLs != nil {
		p.ImageURLs = u.ImageURLs
	}
	if u.StockQuantity != nil {
		p.StockQuantity = *u.StockQuantity
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.IsFeatured != nil {
		p.IsFeatured = *u.IsFeatured
	}
}

/*
MySQL tables

CREATE TABLE categories (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE,
	...
);

CREATE TABLE products (
	id CHAR(36) PRIMARY KEY,
	price DECIMAL(10,2) NOT NULL,
	discount_price DECIMAL(10,2) NULL,
	stock_quantity INT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	...
);
*/
