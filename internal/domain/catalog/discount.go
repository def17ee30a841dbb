package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountSource identifies which discount produced the resolved amount.
type DiscountSource string

const (
	// SourceNone means no discount was active.
	SourceNone DiscountSource = "none"
	// SourceProduct means the product's own discount won.
	SourceProduct DiscountSource = "product"
	// SourceCategory means the category discount won.
	SourceCategory DiscountSource = "category"
)

// ResolvedDiscount is the outcome of resolving a product's discounts at a
// point in time.
type ResolvedDiscount struct {
	Amount     decimal.Decimal
	Source     DiscountSource
	Name       string
	FinalPrice decimal.Decimal
}

// ResolveDiscount computes the single effective discount for a base price
// given the product's own discount and its category's discount. Only
// discounts whose window covers now participate. The larger amount wins;
// on a tie the category discount wins. The final price is rounded to two
// decimal places and never drops below zero, so a fixed discount larger
// than the base price yields a final price of exactly zero.
func ResolveDiscount(basePrice decimal.Decimal, product, category *Discount, now time.Time) ResolvedDiscount {
	productAmount := discountAmount(basePrice, product, now)
	categoryAmount := discountAmount(basePrice, category, now)

	resolved := ResolvedDiscount{
		Amount:     decimal.Zero,
		Source:     SourceNone,
		FinalPrice: basePrice.Round(2),
	}

	switch {
	case categoryAmount.IsPositive() && categoryAmount.GreaterThanOrEqual(productAmount):
		resolved.Amount = categoryAmount
		resolved.Source = SourceCategory
		resolved.Name = category.Name
	case productAmount.IsPositive():
		resolved.Amount = productAmount
		resolved.Source = SourceProduct
		resolved.Name = product.Name
	default:
		return resolved
	}

	final := basePrice.Sub(resolved.Amount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	resolved.FinalPrice = final.Round(2)
	return resolved
}

// discountAmount computes the monetary value of a discount against a base
// price, or zero when the discount is absent or outside its window.
func discountAmount(basePrice decimal.Decimal, d *Discount, now time.Time) decimal.Decimal {
	if !d.ActiveAt(now) {
		return decimal.Zero
	}
	switch d.Type {
	case DiscountPercentage:
		return basePrice.Mul(d.Value).Div(hundred)
	case DiscountFixed:
		return d.Value
	default:
		return decimal.Zero
	}
}
