package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

// Item validation error messages, kept stable because clients key on them.
const (
	ReasonMissing      = "product no longer exists"
	ReasonDeleted      = "product is deleted"
	ReasonUnlisted     = "product is not available"
	ReasonInsufficient = "insufficient quantity"
	ReasonPriceChanged = "price has changed"
)

// ItemError describes why a single cart line failed validation. Requested
// and Available are only set for insufficient-quantity failures.
type ItemError struct {
	ProductID string `json:"item"`
	Reason    string `json:"error"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

// ValidationError rejects a cart as a whole. Either Items carries one entry
// per failed line, or the message alone describes a cart-level failure such
// as an inconsistent coupon.
type ValidationError struct {
	Message string
	Items   []ItemError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CouponState is the live state of the coupon referenced by a cart, reduced
// to the fields validation needs. A nil value means the coupon record no
// longer exists.
type CouponState struct {
	DiscountType  catalog.DiscountType
	DiscountValue decimal.Decimal
	ExpiresAt     *time.Time
	Deleted       bool
}

// Validate checks a cart snapshot against live catalog state before an
// order is committed. Every line is checked; per-item failures accumulate
// and the first failing rule per line wins. An applied coupon must still
// match the type and value snapshotted onto the cart and must not have
// expired; any coupon inconsistency fails the whole cart. Validation never
// passes partially: one error rejects the operation.
func Validate(c *Cart, products map[string]catalog.Product, coupon *CouponState, now time.Time) error {
	if len(c.Items) == 0 {
		return &ValidationError{Message: "cart is empty"}
	}

	var itemErrors []ItemError
	for _, item := range c.Items {
		p, ok := products[item.ProductID]
		if !ok {
			itemErrors = append(itemErrors, ItemError{ProductID: item.ProductID, Reason: ReasonMissing})
			continue
		}
		if p.Deleted {
			itemErrors = append(itemErrors, ItemError{ProductID: item.ProductID, Reason: ReasonDeleted})
			continue
		}
		if !p.Listed {
			itemErrors = append(itemErrors, ItemError{ProductID: item.ProductID, Reason: ReasonUnlisted})
			continue
		}
		if p.Stock < item.Quantity {
			itemErrors = append(itemErrors, ItemError{
				ProductID: item.ProductID,
				Reason:    ReasonInsufficient,
				Requested: item.Quantity,
				Available: p.Stock,
			})
			continue
		}
		if !p.FinalPrice(now).Equal(item.Price) {
			itemErrors = append(itemErrors, ItemError{ProductID: item.ProductID, Reason: ReasonPriceChanged})
			continue
		}
	}
	if len(itemErrors) > 0 {
		return &ValidationError{Message: "cart validation failed", Items: itemErrors}
	}

	if c.HasCoupon() {
		if err := validateCoupon(c, coupon, now); err != nil {
			return err
		}
	}
	return nil
}

func validateCoupon(c *Cart, coupon *CouponState, now time.Time) error {
	if coupon == nil || coupon.Deleted {
		return &ValidationError{Message: "applied coupon is no longer valid"}
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now) {
		return &ValidationError{Message: "applied coupon has expired"}
	}
	if coupon.DiscountType != c.DiscountType || !coupon.DiscountValue.Equal(c.DiscountValue) {
		return &ValidationError{Message: "applied coupon has changed since it was applied"}
	}
	return nil
}
