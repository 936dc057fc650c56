package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/entity"
)

func newCartFixture() (*CartService, *fakeCartStore, *fakeProductStore) {
	a := product("A", "10.00", 5)
	hidden := product("H", "1.00", 100)
	hidden.IsActive = false
	products := newFakeProductStore(&a, &hidden)
	carts := newFakeCartStore()
	return NewCartService(carts, products), carts, products
}

func TestCartAddItem_MergesQuantities(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	first, err := svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, "u1", "A", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, "A", second.Product.ID)

	lines, err := svc.ListItems(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartAddItem_MergedQuantityOverStock(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 4)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "A", 2)

	var stockErr *entity.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	count, err := svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestCartAddItem_InactiveOrMissingProduct(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "H", 1)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.AddItem(ctx, "u1", "nope", 1)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.AddItem(ctx, "u1", "A", 0)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestCartUpdateItem(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()
	line, err := svc.AddItem(ctx, "u1", "A", 1)
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, "u1", line.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)

	_, err = svc.UpdateItem(ctx, "u1", line.ID, 6)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	_, err = svc.UpdateItem(ctx, "u2", line.ID, 1)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCartRemoveAndClearNeverFailOnMissing(t *testing.T) {
	svc, _, _ := newCartFixture()
	ctx := context.Background()
	line, err := svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)

	assert.NoError(t, svc.RemoveItem(ctx, "u2", line.ID))
	count, _ := svc.Count(ctx, "u1")
	assert.Equal(t, 2, count, "another user cannot remove the line")

	assert.NoError(t, svc.RemoveItem(ctx, "u1", line.ID))
	assert.NoError(t, svc.RemoveItem(ctx, "u1", line.ID))
	assert.NoError(t, svc.Clear(ctx, "u1"))

	count, err = svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
