package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karomart/backend/internal/domain/catalog"
)

func listedProduct(id string, price decimal.Decimal, stock int) catalog.Product {
	return catalog.Product{ID: id, Price: price, Stock: stock, Listed: true}
}

func TestValidateEmptyCart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	err := Validate(&Cart{}, nil, nil, now)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart is empty", verr.Message)
	assert.Empty(t, verr.Items)
}

func TestValidateAccumulatesItemErrors(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c := &Cart{Items: []Item{
		{ProductID: "missing", Price: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "deleted", Price: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "unlisted", Price: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "scarce", Price: decimal.NewFromInt(10), Quantity: 5},
		{ProductID: "repriced", Price: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: "fine", Price: decimal.NewFromInt(10), Quantity: 1},
	}}
	products := map[string]catalog.Product{
		"deleted":  {ID: "deleted", Price: decimal.NewFromInt(10), Stock: 5, Listed: true, Deleted: true},
		"unlisted": {ID: "unlisted", Price: decimal.NewFromInt(10), Stock: 5},
		"scarce":   listedProduct("scarce", decimal.NewFromInt(10), 2),
		"repriced": listedProduct("repriced", decimal.NewFromInt(12), 5),
		"fine":     listedProduct("fine", decimal.NewFromInt(10), 5),
	}

	err := Validate(c, products, nil, now)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Items, 5)

	byProduct := make(map[string]ItemError, len(verr.Items))
	for _, ie := range verr.Items {
		byProduct[ie.ProductID] = ie
	}
	assert.Equal(t, ReasonMissing, byProduct["missing"].Reason)
	assert.Equal(t, ReasonDeleted, byProduct["deleted"].Reason)
	assert.Equal(t, ReasonUnlisted, byProduct["unlisted"].Reason)
	assert.Equal(t, ReasonPriceChanged, byProduct["repriced"].Reason)

	scarce := byProduct["scarce"]
	assert.Equal(t, ReasonInsufficient, scarce.Reason)
	assert.Equal(t, 5, scarce.Requested)
	assert.Equal(t, 2, scarce.Available)

	assert.NotContains(t, byProduct, "fine")
}

func TestValidateDeletedBeatsInsufficientStock(t *testing.T) {
	// The first failing rule per line wins; a deleted product with zero
	// stock reports deletion, not insufficient quantity.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c := &Cart{Items: []Item{{ProductID: "p1", Price: decimal.NewFromInt(10), Quantity: 3}}}
	products := map[string]catalog.Product{
		"p1": {ID: "p1", Price: decimal.NewFromInt(10), Stock: 0, Listed: true, Deleted: true},
	}

	err := Validate(c, products, nil, now)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Items, 1)
	assert.Equal(t, ReasonDeleted, verr.Items[0].Reason)
}

func TestValidatePriceMatchesDiscountedPrice(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	p := listedProduct("p1", decimal.NewFromInt(100), 5)
	p.Discount = &catalog.Discount{
		Type: catalog.DiscountPercentage, Value: decimal.NewFromInt(10),
		Start: &start, End: &end,
	}

	// Snapshot at the discounted price passes.
	c := &Cart{Items: []Item{{ProductID: "p1", Price: decimal.NewFromInt(90), Quantity: 1}}}
	assert.NoError(t, Validate(c, map[string]catalog.Product{"p1": p}, nil, now))

	// Snapshot at the base price fails once the discount is active.
	c = &Cart{Items: []Item{{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1}}}
	err := Validate(c, map[string]catalog.Product{"p1": p}, nil, now)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Items, 1)
	assert.Equal(t, ReasonPriceChanged, verr.Items[0].Reason)
}

func TestValidateCoupon(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	baseCart := func() *Cart {
		return &Cart{
			Items:         []Item{{ProductID: "p1", Price: decimal.NewFromInt(10), Quantity: 1}},
			CouponID:      "c1",
			DiscountType:  catalog.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5),
		}
	}
	products := map[string]catalog.Product{
		"p1": listedProduct("p1", decimal.NewFromInt(10), 5),
	}

	tests := []struct {
		name    string
		coupon  *CouponState
		wantMsg string
	}{
		{
			name:    "coupon record gone",
			coupon:  nil,
			wantMsg: "applied coupon is no longer valid",
		},
		{
			name: "coupon soft deleted",
			coupon: &CouponState{
				DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
				Deleted: true,
			},
			wantMsg: "applied coupon is no longer valid",
		},
		{
			name: "coupon expired",
			coupon: &CouponState{
				DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
				ExpiresAt: &past,
			},
			wantMsg: "applied coupon has expired",
		},
		{
			name: "coupon value edited after apply",
			coupon: &CouponState{
				DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(8),
				ExpiresAt: &future,
			},
			wantMsg: "applied coupon has changed since it was applied",
		},
		{
			name: "coupon type edited after apply",
			coupon: &CouponState{
				DiscountType: catalog.DiscountPercentage, DiscountValue: decimal.NewFromInt(5),
				ExpiresAt: &future,
			},
			wantMsg: "applied coupon has changed since it was applied",
		},
		{
			name: "coupon still consistent",
			coupon: &CouponState{
				DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
				ExpiresAt: &future,
			},
		},
		{
			name: "coupon without expiry never expires",
			coupon: &CouponState{
				DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(baseCart(), products, tt.coupon, now)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}
}

func TestValidateItemErrorsBeforeCoupon(t *testing.T) {
	// Item failures are reported even when the coupon is also broken.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c := &Cart{
		Items:         []Item{{ProductID: "missing", Price: decimal.NewFromInt(10), Quantity: 1}},
		CouponID:      "c1",
		DiscountType:  catalog.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5),
	}

	err := Validate(c, map[string]catalog.Product{}, nil, now)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Items, 1)
	assert.Equal(t, ReasonMissing, verr.Items[0].Reason)
}
