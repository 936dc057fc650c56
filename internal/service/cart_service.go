package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

// CartService manages the per-user cart. Its stock checks are advisory; the
// authoritative check happens again at checkout under row locks.
type CartService struct {
	carts    repository.CartStore
	products repository.ProductStore
}

// NewCartService creates a new instance of CartService.
func NewCartService(carts repository.CartStore, products repository.ProductStore) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
	}
}

func (s *CartService) ListItems(ctx context.Context, userID string) ([]entity.CartLine, error) {
	lines, err := s.carts.ListLines(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing cart of user %s", userID)
		return nil, err
	}
	return lines, nil
}

// AddItem adds quantity of the product to the cart, merging with an existing
// line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*entity.CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", entity.ErrInvalidInput)
	}

	product, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	merged := quantity
	existing, err := s.carts.FindLine(ctx, userID, productID)
	switch {
	case err == nil:
		merged += existing.Quantity
	case errors.Is(err, entity.ErrNotFound):
	default:
		logger.Error().Err(err).Msgf("Error reading cart of user %s", userID)
		return nil, err
	}

	if merged > product.StockQuantity {
		logger.Warn().Msgf("Product %s has %d in stock, cart wants %d", productID, product.StockQuantity, merged)
		return nil, &entity.InsufficientStockError{ProductID: productID, Requested: merged, Available: product.StockQuantity}
	}

	line, err := s.carts.UpsertLine(ctx, &entity.CartLine{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error adding product %s to cart of user %s", productID, userID)
		return nil, err
	}
	line.Product = product
	return line, nil
}

// UpdateItem sets the quantity of one of the caller's cart lines.
func (s *CartService) UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*entity.CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", entity.ErrInvalidInput)
	}

	line, err := s.carts.GetLine(ctx, lineID, userID)
	if err != nil {
		return nil, err
	}
	product, err := s.activeProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, &entity.InsufficientStockError{ProductID: product.ID, Requested: quantity, Available: product.StockQuantity}
	}

	if err := s.carts.UpdateQuantity(ctx, lineID, userID, quantity); err != nil {
		logger.Error().Err(err).Msgf("Error updating cart item %s", lineID)
		return nil, err
	}
	line.Quantity = quantity
	line.Product = product
	return line, nil
}

// RemoveItem deletes the line if the caller owns it. Removing a line that is
// already gone is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) error {
	if err := s.carts.DeleteLine(ctx, lineID, userID); err != nil {
		logger.Error().Err(err).Msgf("Error removing cart item %s", lineID)
		return err
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.Error().Err(err).Msgf("Error clearing cart of user %s", userID)
		return err
	}
	return nil
}

// Count is the sum of quantities across the cart.
func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	return s.carts.CountItems(ctx, userID)
}

func (s *CartService) activeProduct(ctx context.Context, productID string) (*entity.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			logger.Error().Err(err).Msgf("Error getting product %s", productID)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("product %s: %w", productID, entity.ErrNotFound)
	}
	return product, nil
}
