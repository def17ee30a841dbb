package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/karomart/backend/internal/domain/catalog"
)

var (
	// ErrProductDeleted is returned when mutating a cart with a
	// soft-deleted product.
	ErrProductDeleted = errors.New("product has been deleted")
	// ErrNotEnoughStock is returned when a requested quantity exceeds the
	// product's current stock. The check is advisory: the authoritative
	// check runs again inside the order transaction.
	ErrNotEnoughStock = errors.New("not enough stock")
)

// Service implements the cart mutation semantics on top of the cart and
// product repositories.
type Service struct {
	products catalog.ProductRepository
	carts    Repository
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(products catalog.ProductRepository, carts Repository) *Service {
	return &Service{products: products, carts: carts, now: time.Now}
}

// SetProduct adds the product to the user's cart or re-sets an existing
// line. Quantity zero removes the line. Setting an existing line replaces
// its quantity (it does not increment) and refreshes the stored price
// snapshot to the product's current final price.
func (s *Service) SetProduct(ctx context.Context, userID, productID string, quantity int) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.Deleted {
		return ErrProductDeleted
	}

	if quantity == 0 {
		// Removal is idempotent: a missing line is not an error.
		if err := s.carts.RemoveItem(ctx, userID, productID); err != nil && !errors.Is(err, ErrItemNotFound) {
			return err
		}
		return nil
	}

	if p.Stock < quantity {
		return ErrNotEnoughStock
	}

	price := p.FinalPrice(s.now())
	if err := s.carts.SetItem(ctx, userID, productID, quantity, price); err != nil {
		return errors.Wrap(err, "set cart item")
	}
	return nil
}

// RemoveProduct drops the line for productID from the user's cart.
func (s *Service) RemoveProduct(ctx context.Context, userID, productID string) error {
	return s.carts.RemoveItem(ctx, userID, productID)
}

// Clear empties the user's cart and detaches any applied coupon.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}
