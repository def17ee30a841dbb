// Package catalog holds the product and category models and the pure
// pricing logic derived from them. Final prices are never persisted;
// they are resolved from the base price and the active discount windows
// at read time.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned by a conditional stock decrement when the
// available stock is lower than the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the base price.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed discounts a fixed monetary amount.
	DiscountFixed DiscountType = "fixed"
)

// Discount is a named discount window attached to a product or a category.
// It only takes effect while the current time lies inside [Start, End).
type Discount struct {
	Name  string          `json:"name"`
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
	Start *time.Time      `json:"startDate"`
	End   *time.Time      `json:"endDate"`
}

// ActiveAt reports whether the discount window covers the given instant.
// A discount with a missing start or end date is never active.
func (d *Discount) ActiveAt(now time.Time) bool {
	if d == nil || d.Start == nil || d.End == nil {
		return false
	}
	return !now.Before(*d.Start) && now.Before(*d.End)
}

// Product is a catalog item available for purchase.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Listed      bool            `json:"listed"`
	Deleted     bool            `json:"deleted"`
	Discount    *Discount       `json:"discount,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// FinalPrice resolves the product's effective price at the given instant,
// taking the larger of its own and its category's active discounts.
func (p *Product) FinalPrice(now time.Time) decimal.Decimal {
	var categoryDiscount *Discount
	if p.Category != nil {
		categoryDiscount = p.Category.Discount
	}
	return ResolveDiscount(p.Price, p.Discount, categoryDiscount, now).FinalPrice
}

// Available reports whether the product can currently be sold.
func (p *Product) Available() bool {
	return !p.Deleted && p.Listed
}

// ProductFilter narrows List results.
type ProductFilter struct {
	CategoryID string
	// ListedOnly hides unlisted products (the storefront view).
	ListedOnly bool
	// IncludeDeleted includes soft-deleted products (admin view).
	IncludeDeleted bool
}

// ProductRepository defines persistence operations for the product catalog.
// Reads return products with their category (and its discount fields)
// attached so final prices can be resolved without extra round trips.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SetListed(ctx context.Context, id string, listed bool) error
	SoftDelete(ctx context.Context, id string) error

	// DecrementStock atomically subtracts qty from the product's stock,
	// failing with ErrInsufficientStock when stock < qty at commit time.
	DecrementStock(ctx context.Context, id string, qty int) error

	// ApplyOffer stamps the discount onto every product in ids and
	// returns the number of products updated.
	ApplyOffer(ctx context.Context, ids []string, d Discount) (int, error)
	// ListActiveOffers returns products whose discount window covers now.
	ListActiveOffers(ctx context.Context, now time.Time) ([]Product, error)
}
