// Package order holds the order model, the placement transaction that turns
// a validated cart into an order, and the lifecycle state machine with its
// wallet refund side effects.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/wallet"
)

var (
	// ErrNotFound is returned when an order does not exist or does not
	// belong to the requesting user.
	ErrNotFound = errors.New("order not found")
	// ErrStockChanged is returned when stock moved between validation and
	// commit. The client should re-fetch the cart and retry.
	ErrStockChanged = errors.New("stock levels changed during processing")
	// ErrCashLimitExceeded is returned for cash-on-delivery orders above
	// the cash ceiling.
	ErrCashLimitExceeded = errors.New("order total exceeds the cash on delivery limit")
	// ErrInvalidTransition is returned for a lifecycle move the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrReturnPending blocks direct admin status edits while a return
	// request awaits a decision.
	ErrReturnPending = errors.New("order has a pending return request")
	// ErrPaymentNotRetryable is returned when retrying payment on a cash
	// order or one that is already paid.
	ErrPaymentNotRetryable = errors.New("payment cannot be retried for this order")
)

// CashLimit is the maximum total accepted for cash-on-delivery orders.
var CashLimit = decimal.NewFromInt(1000)

// Status is the order's position in its lifecycle.
type Status string

const (
	StatusPending          Status = "pending"
	StatusShipped          Status = "shipped"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusRequestingReturn Status = "requesting-return"
	StatusReturned         Status = "returned"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

// PaymentStatus tracks whether the order has been settled.
type PaymentStatus string

const (
	PaymentIncomplete PaymentStatus = "incomplete"
	PaymentPaid       PaymentStatus = "paid"
	PaymentRefunded   PaymentStatus = "refunded"
)

// PaymentMethod selects the settlement branch at placement.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cod"
	MethodOnline PaymentMethod = "online"
	MethodWallet PaymentMethod = "wallet"
)

// Valid reports whether the method is one of the supported branches.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodOnline, MethodWallet:
		return true
	default:
		return false
	}
}

// Item is an immutable order line snapshotted from the cart at placement.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Order is a placed order. Items and the address are snapshots; editing the
// catalog or the address book after placement never changes an order.
type Order struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Items         []Item           `json:"items"`
	Address       address.Snapshot `json:"address"`
	Method        PaymentMethod    `json:"paymentMethod"`
	Status        Status           `json:"status"`
	PaymentStatus PaymentStatus    `json:"paymentStatus"`
	// PaymentHandle is the gateway order reference for online payments.
	PaymentHandle string               `json:"paymentHandle,omitempty"`
	CouponID      string               `json:"couponId,omitempty"`
	DiscountType  catalog.DiscountType `json:"discountType,omitempty"`
	DiscountValue decimal.Decimal      `json:"discountValue"`
	CancelledAt   *time.Time           `json:"cancelledAt,omitempty"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// OriginalPrice is the pre-discount total of the snapshotted items.
func (o *Order) OriginalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// TotalPrice applies the snapshotted coupon discount to the original price,
// floored at zero and rounded to two decimal places.
func (o *Order) TotalPrice() decimal.Decimal {
	total := o.OriginalPrice()
	if o.CouponID != "" {
		switch o.DiscountType {
		case catalog.DiscountFixed:
			total = total.Sub(o.DiscountValue)
		case catalog.DiscountPercentage:
			total = total.Sub(total.Mul(o.DiscountValue).Div(decimal.NewFromInt(100)))
		}
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// ListFilter narrows order listings.
type ListFilter struct {
	// UserID scopes the listing to one user; empty lists all (admin).
	UserID string
	Status Status
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByPaymentHandle(ctx context.Context, handle string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Update(ctx context.Context, o *Order) error
}

// Tx bundles the repositories participating in one storage transaction.
// Writes through them are invisible to other transactions until commit.
type Tx interface {
	Products() catalog.ProductRepository
	Carts() cart.Repository
	Coupons() coupon.Repository
	Addresses() address.Repository
	Wallets() wallet.Repository
	Orders() Repository
}

// Store opens transactions over the full order-placement surface.
type Store interface {
	// InTx runs fn inside a single transaction, committing when fn returns
	// nil and rolling back every write otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Repos returns the same repository surface outside a transaction.
	Repos() Tx
}
