// Package cart holds the per-user cart aggregate, its mutation semantics,
// and the pre-checkout validation against live catalog state.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

var (
	// ErrNotFound is returned when a user has no cart or the referenced
	// cart does not belong to them.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a line item is absent from the cart.
	ErrItemNotFound = errors.New("item not found in cart")
)

// Item is a single cart line: a product reference, the quantity requested,
// and the unit price snapshotted when the line was last touched.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Cart is a user's pending selection. At most one cart exists per user.
// When a coupon is applied, its discount type and value are copied onto the
// cart so later coupon edits can be detected at checkout.
type Cart struct {
	ID            string
	UserID        string
	Items         []Item
	CouponID      string
	DiscountType  catalog.DiscountType
	DiscountValue decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Subtotal is the sum of price x quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Total applies the snapshotted coupon discount to the subtotal, floors the
// result at zero, and rounds to two decimal places.
func (c *Cart) Total() decimal.Decimal {
	total := c.Subtotal()
	if c.HasCoupon() {
		switch c.DiscountType {
		case catalog.DiscountFixed:
			total = total.Sub(c.DiscountValue)
		case catalog.DiscountPercentage:
			total = total.Sub(total.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)))
		}
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// HasCoupon reports whether a coupon is currently applied.
func (c *Cart) HasCoupon() bool {
	return c.CouponID != ""
}

// Item returns the line for the given product, if present.
func (c *Cart) Item(productID string) (Item, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Repository defines persistence operations for carts. The cart row is
// created lazily by SetItem; Clear empties the line items and detaches any
// applied coupon but keeps the cart row.
type Repository interface {
	GetByID(ctx context.Context, id, userID string) (*Cart, error)
	GetByUser(ctx context.Context, userID string) (*Cart, error)

	// SetItem upserts the user's cart and sets the line for productID to
	// the given quantity and price snapshot, inserting the line when absent.
	SetItem(ctx context.Context, userID, productID string, quantity int, price decimal.Decimal) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error

	AttachCoupon(ctx context.Context, userID, couponID string, discountType catalog.DiscountType, discountValue decimal.Decimal) error
	DetachCoupon(ctx context.Context, userID string) error
}
