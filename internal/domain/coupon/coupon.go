// Package coupon holds coupon records and the rules tying them to carts:
// minimum order amounts, per-user redemption limits and the discount
// snapshot copied onto the cart at apply time.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

var (
	// ErrNotFound is returned when a coupon does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when creating a coupon whose code
	// already exists. Uniqueness is checked at creation time only.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrExpired is returned when applying a deleted or expired coupon.
	ErrExpired = errors.New("coupon is expired or no longer valid")
	// ErrMinOrderNotMet is returned when the cart total is below the
	// coupon's minimum order amount.
	ErrMinOrderNotMet = errors.New("cart total below coupon minimum order amount")
	// ErrLimitReached is returned when the user has exhausted their
	// per-user redemption limit.
	ErrLimitReached = errors.New("coupon redemption limit reached")
	// ErrAlreadyApplied is returned when the cart already carries a coupon.
	ErrAlreadyApplied = errors.New("a coupon is already applied to the cart")
	// ErrNotApplied is returned when removing a coupon from a cart that
	// does not carry one.
	ErrNotApplied = errors.New("no coupon applied to the cart")
)

// Coupon is a redeemable discount code.
type Coupon struct {
	ID             string               `json:"id"`
	Code           string               `json:"code"`
	Description    string               `json:"description,omitempty"`
	DiscountType   catalog.DiscountType `json:"discountType"`
	DiscountValue  decimal.Decimal      `json:"discountValue"`
	MinOrderAmount decimal.Decimal      `json:"minOrderAmount"`
	// LimitPerUser caps redemptions per user; zero means unlimited.
	LimitPerUser int `json:"limitPerUser"`
	// UsedCount is the global redemption counter.
	UsedCount int        `json:"usedCount"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Deleted   bool       `json:"deleted"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ValidAt reports whether the coupon can be redeemed at the given instant.
// A coupon without an expiry date never expires.
func (c *Coupon) ValidAt(now time.Time) bool {
	if c.Deleted {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// Repository defines persistence operations for coupons and their
// redemption bookkeeping.
type Repository interface {
	List(ctx context.Context, includeDeleted bool) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	SoftDelete(ctx context.Context, id string) error

	// RedemptionCount reports how many times the user redeemed the coupon.
	RedemptionCount(ctx context.Context, couponID, userID string) (int, error)
	// RecordRedemption increments the global counter and records the user.
	RecordRedemption(ctx context.Context, couponID, userID string) error
	// RemoveRedemption reverts one of the user's redemptions and decrements
	// the global counter.
	RemoveRedemption(ctx context.Context, couponID, userID string) error
}
