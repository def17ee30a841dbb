package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karomart/backend/internal/domain/catalog"
)

type stubProducts struct {
	catalog.ProductRepository
	products map[string]catalog.Product
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

type memCarts struct {
	Repository
	items   map[string]Item // by product id
	cleared bool
}

func newMemCarts() *memCarts {
	return &memCarts{items: make(map[string]Item)}
}

func (m *memCarts) SetItem(_ context.Context, _, productID string, quantity int, price decimal.Decimal) error {
	m.items[productID] = Item{ProductID: productID, Quantity: quantity, Price: price}
	return nil
}

func (m *memCarts) RemoveItem(_ context.Context, _, productID string) error {
	if _, ok := m.items[productID]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, productID)
	return nil
}

func (m *memCarts) Clear(_ context.Context, _ string) error {
	m.items = make(map[string]Item)
	m.cleared = true
	return nil
}

func newTestService(products map[string]catalog.Product, carts *memCarts, now time.Time) *Service {
	s := NewService(&stubProducts{products: products}, carts)
	s.now = func() time.Time { return now }
	return s
}

func TestServiceSetProduct(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	discounted := catalog.Product{
		ID: "p1", Price: decimal.NewFromInt(100), Stock: 10, Listed: true,
		Discount: &catalog.Discount{
			Type: catalog.DiscountPercentage, Value: decimal.NewFromInt(20),
			Start: &start, End: &end,
		},
	}

	t.Run("new item snapshots the discounted price", func(t *testing.T) {
		carts := newMemCarts()
		svc := newTestService(map[string]catalog.Product{"p1": discounted}, carts, now)

		require.NoError(t, svc.SetProduct(ctx, "u1", "p1", 2))

		item, ok := carts.items["p1"]
		require.True(t, ok)
		assert.Equal(t, 2, item.Quantity)
		assert.True(t, decimal.NewFromInt(80).Equal(item.Price), "got %s", item.Price)
	})

	t.Run("existing item is re-set, not incremented", func(t *testing.T) {
		carts := newMemCarts()
		carts.items["p1"] = Item{ProductID: "p1", Quantity: 5, Price: decimal.NewFromInt(100)}
		svc := newTestService(map[string]catalog.Product{"p1": discounted}, carts, now)

		require.NoError(t, svc.SetProduct(ctx, "u1", "p1", 2))

		item := carts.items["p1"]
		assert.Equal(t, 2, item.Quantity)
		assert.True(t, decimal.NewFromInt(80).Equal(item.Price),
			"price snapshot must be refreshed, got %s", item.Price)
	})

	t.Run("quantity zero removes the item", func(t *testing.T) {
		carts := newMemCarts()
		carts.items["p1"] = Item{ProductID: "p1", Quantity: 5}
		svc := newTestService(map[string]catalog.Product{"p1": discounted}, carts, now)

		require.NoError(t, svc.SetProduct(ctx, "u1", "p1", 0))
		assert.NotContains(t, carts.items, "p1")
	})

	t.Run("quantity zero on a missing item is idempotent", func(t *testing.T) {
		carts := newMemCarts()
		svc := newTestService(map[string]catalog.Product{"p1": discounted}, carts, now)

		assert.NoError(t, svc.SetProduct(ctx, "u1", "p1", 0))
	})

	t.Run("unknown product", func(t *testing.T) {
		svc := newTestService(map[string]catalog.Product{}, newMemCarts(), now)

		err := svc.SetProduct(ctx, "u1", "missing", 1)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("deleted product", func(t *testing.T) {
		p := discounted
		p.Deleted = true
		svc := newTestService(map[string]catalog.Product{"p1": p}, newMemCarts(), now)

		err := svc.SetProduct(ctx, "u1", "p1", 1)
		assert.ErrorIs(t, err, ErrProductDeleted)
	})

	t.Run("quantity above stock", func(t *testing.T) {
		carts := newMemCarts()
		svc := newTestService(map[string]catalog.Product{"p1": discounted}, carts, now)

		err := svc.SetProduct(ctx, "u1", "p1", 11)
		assert.ErrorIs(t, err, ErrNotEnoughStock)
		assert.Empty(t, carts.items)
	})
}

func TestServiceClear(t *testing.T) {
	carts := newMemCarts()
	carts.items["p1"] = Item{ProductID: "p1", Quantity: 1}
	svc := newTestService(nil, carts, time.Now())

	require.NoError(t, svc.Clear(context.Background(), "u1"))
	assert.True(t, carts.cleared)
	assert.Empty(t, carts.items)
}
