package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

const (
	defaultPageSize     = 20
	maxPageSize         = 100
	defaultFeaturedSize = 10
	maxFeaturedSize     = 50
)

// CatalogService serves the product catalog. Single product reads go through
// the cache; concurrent misses for the same product share one database query.
type CatalogService struct {
	products repository.ProductStore
	cache    ProductCache
	group    singleflight.Group
}

// NewCatalogService creates a new instance of CatalogService. cache may be nil.
func NewCatalogService(products repository.ProductStore, cache ProductCache) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
	}
}

// GetProduct returns an active product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	if s.cache != nil {
		product, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			logger.Error().Err(err).Msgf("Error getting product %s from cache", id)
		} else if ok {
			return product, nil
		}
	}

	v, err, _ := s.group.Do(id, func() (any, error) {
		product, err := s.products.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, product); err != nil {
				logger.Error().Err(err).Msgf("Error setting product %s in cache", id)
			}
		}
		return product, nil
	})
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			logger.Error().Err(err).Msgf("Error getting product by ID %s", id)
		}
		return nil, err
	}
	return v.(*entity.Product), nil
}

// ListProducts lists active products. A limit outside 1..100 falls back to the
// page size bounds.
func (s *CatalogService) ListProducts(ctx context.Context, filter entity.ProductFilter) ([]*entity.Product, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)

	products, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing products")
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) Search(ctx context.Context, query string, skip, limit int) ([]*entity.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required: %w", entity.ErrInvalidInput)
	}
	return s.ListProducts(ctx, entity.ProductFilter{Search: query, Skip: skip, Limit: limit})
}

func (s *CatalogService) ListByCategory(ctx context.Context, categoryID string, skip, limit int) ([]*entity.Product, error) {
	return s.ListProducts(ctx, entity.ProductFilter{CategoryID: categoryID, Skip: skip, Limit: limit})
}

func (s *CatalogService) Featured(ctx context.Context, limit int) ([]*entity.Product, error) {
	switch {
	case limit <= 0:
		limit = defaultFeaturedSize
	case limit > maxFeaturedSize:
		limit = maxFeaturedSize
	}
	return s.ListProducts(ctx, entity.ProductFilter{FeaturedOnly: true, Limit: limit})
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	categories, err := s.products.ListCategories(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing categories")
		return nil, err
	}
	return categories, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.IsActive = true
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.ImageURLs == nil {
		product.ImageURLs = []string{}
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}
	logger.Info().Msgf("Product %s created", product.ID)
	return product, nil
}

// UpdateProduct applies a partial update. Inactive products can be updated,
// which is how a soft-deleted product is brought back.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, update entity.ProductUpdate) (*entity.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(product)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.UpdateProduct(ctx, product); err != nil {
		logger.Error().Err(err).Msgf("Error updating product %s", id)
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

// DeleteProduct deactivates the product; existing order lines keep it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.DeactivateProduct(ctx, id); err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			logger.Error().Err(err).Msgf("Error deleting product %s", id)
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Invalidate drops cached copies, e.g. after an order moved stock.
func (s *CatalogService) Invalidate(ctx context.Context, ids ...string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, ids...)
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if err := s.Invalidate(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %s from cache", id)
	}
}

func validateProduct(p *entity.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return fmt.Errorf("name is required: %w", entity.ErrInvalidInput)
	case !p.Price.IsPositive():
		return fmt.Errorf("price must be positive: %w", entity.ErrInvalidInput)
	case p.DiscountPrice.Valid && (p.DiscountPrice.Decimal.IsNegative() || p.DiscountPrice.Decimal.GreaterThan(p.Price)):
		return fmt.Errorf("discount price must be between 0 and price: %w", entity.ErrInvalidInput)
	case p.StockQuantity < 0:
		return fmt.Errorf("stock quantity cannot be negative: %w", entity.ErrInvalidInput)
	}
	return nil
}
