package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/payment"
	"github.com/karomart/backend/internal/domain/wallet"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// placementFixture builds a store with two listed products, a cart for u1
// totalling 500 and a saved address.
func placementFixture() *memStore {
	store := newMemStore()
	store.products["p1"] = catalog.Product{
		ID: "p1", Name: "Mixer", Price: decimal.NewFromInt(100), Stock: 10, Listed: true,
	}
	store.products["p2"] = catalog.Product{
		ID: "p2", Name: "Kettle", Price: decimal.NewFromInt(150), Stock: 5, Listed: true,
	}
	store.cart = &cart.Cart{
		ID: "cart-1", UserID: "u1",
		Items: []cart.Item{
			{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 2},
			{ProductID: "p2", Price: decimal.NewFromInt(150), Quantity: 2},
		},
	}
	store.addresses["a1"] = address.Address{
		ID: "a1", UserID: "u1", Name: "A", Line: "12 MG Road",
		City: "Bengaluru", State: "KA", Pincode: "560001",
	}
	return store
}

func newOrderService(store *memStore, provider payment.Provider) *Service {
	s := NewService(store, provider, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func placeReq(method PaymentMethod) PlaceOrderRequest {
	return PlaceOrderRequest{CartID: "cart-1", UserID: "u1", AddressID: "a1", Method: method}
}

func singleOrder(t *testing.T, store *memStore) Order {
	t.Helper()
	require.Len(t, store.orders, 1)
	for _, o := range store.orders {
		return o
	}
	return Order{}
}

func TestPlaceOrderCash(t *testing.T) {
	store := placementFixture()
	svc := newOrderService(store, &stubProvider{})

	res, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Empty(t, res.PaymentHandle)

	o := singleOrder(t, store)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentIncomplete, o.PaymentStatus)
	assert.True(t, decimal.NewFromInt(500).Equal(o.TotalPrice()))
	assert.Equal(t, "12 MG Road", o.Address.Line)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, "Mixer", o.Items[0].Name)

	assert.Equal(t, 8, store.products["p1"].Stock)
	assert.Equal(t, 3, store.products["p2"].Stock)
	assert.Empty(t, store.cart.Items, "cart must be cleared on success")
}

func TestPlaceOrderWallet(t *testing.T) {
	store := placementFixture()
	store.cart.Items = []cart.Item{
		{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 3},
	}
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodWallet))
	require.NoError(t, err)

	o := singleOrder(t, store)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.True(t, decimal.NewFromInt(700).Equal(store.balances["u1"]),
		"balance must drop by exactly the total, got %s", store.balances["u1"])

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.True(t, decimal.NewFromInt(-300).Equal(entry.Amount), "got %s", entry.Amount)
	assert.Equal(t, wallet.ReasonOrderPayment, entry.Reason)
	assert.Equal(t, o.ID, entry.OrderID)
}

func TestPlaceOrderWalletInsufficientBalance(t *testing.T) {
	store := placementFixture()
	store.balances["u1"] = decimal.NewFromInt(100)
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodWallet))
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	// The rollback must restore the stock already decremented.
	assert.Equal(t, 10, store.products["p1"].Stock)
	assert.Equal(t, 5, store.products["p2"].Stock)
	assert.True(t, decimal.NewFromInt(100).Equal(store.balances["u1"]))
	assert.Empty(t, store.orders)
	assert.Len(t, store.cart.Items, 2)
}

func TestPlaceOrderWalletMissingWallet(t *testing.T) {
	store := placementFixture()
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodWallet))
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestPlaceOrderOnline(t *testing.T) {
	store := placementFixture()
	provider := &stubProvider{handle: "pi_123"}
	svc := newOrderService(store, provider)

	res, err := svc.PlaceOrder(context.Background(), placeReq(MethodOnline))
	require.NoError(t, err)
	assert.Equal(t, "pi_123", res.PaymentHandle)

	o := singleOrder(t, store)
	assert.Equal(t, PaymentIncomplete, o.PaymentStatus)
	assert.Equal(t, "pi_123", o.PaymentHandle)
	assert.Equal(t, 1, provider.created)
}

func TestPlaceOrderCashOverLimit(t *testing.T) {
	store := placementFixture()
	store.cart.Items = []cart.Item{
		{ProductID: "p2", Price: decimal.NewFromInt(150), Quantity: 5},
		{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 10},
	}
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))
	require.ErrorIs(t, err, ErrCashLimitExceeded)

	assert.Equal(t, 10, store.products["p1"].Stock, "no stock mutated")
	assert.Equal(t, 5, store.products["p2"].Stock)
	assert.Empty(t, store.orders)
}

func TestPlaceOrderStockRace(t *testing.T) {
	// Two lines draw from the same product. Validation sees enough stock
	// for each line in isolation, but the second conditional decrement
	// fails, which must abort and restore the first.
	store := placementFixture()
	store.cart.Items = []cart.Item{
		{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 6},
		{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 6},
	}
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodOnline))
	require.ErrorIs(t, err, ErrStockChanged)

	assert.Equal(t, 10, store.products["p1"].Stock)
	assert.Empty(t, store.orders)
	assert.Len(t, store.cart.Items, 2)
}

func TestPlaceOrderStalePrice(t *testing.T) {
	store := placementFixture()
	p := store.products["p1"]
	p.Price = decimal.NewFromInt(120)
	store.products["p1"] = p
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))

	var verr *cart.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Items, 1)
	assert.Equal(t, "p1", verr.Items[0].ProductID)
	assert.Equal(t, cart.ReasonPriceChanged, verr.Items[0].Reason)
	assert.Empty(t, store.orders)
	assert.Equal(t, 10, store.products["p1"].Stock)
}

func TestPlaceOrderAtomicityOnStorageFailure(t *testing.T) {
	store := placementFixture()
	store.balances["u1"] = decimal.NewFromInt(1000)
	store.failOrderCreate = true
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodWallet))
	require.Error(t, err)

	assert.Equal(t, 10, store.products["p1"].Stock)
	assert.Equal(t, 5, store.products["p2"].Stock)
	assert.True(t, decimal.NewFromInt(1000).Equal(store.balances["u1"]),
		"wallet debit must be rolled back, got %s", store.balances["u1"])
	assert.Empty(t, store.entries)
	assert.Len(t, store.cart.Items, 2, "cart must remain unchanged")
	assert.Empty(t, store.orders)
}

func TestPlaceOrderAddressChecks(t *testing.T) {
	t.Run("missing address", func(t *testing.T) {
		store := placementFixture()
		svc := newOrderService(store, &stubProvider{})

		req := placeReq(MethodCash)
		req.AddressID = "missing"
		_, err := svc.PlaceOrder(context.Background(), req)
		require.ErrorIs(t, err, address.ErrNotFound)
		assert.Equal(t, 10, store.products["p1"].Stock, "decrement rolled back")
	})

	t.Run("address owned by someone else", func(t *testing.T) {
		store := placementFixture()
		a := store.addresses["a1"]
		a.UserID = "u2"
		store.addresses["a1"] = a
		svc := newOrderService(store, &stubProvider{})

		_, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))
		assert.ErrorIs(t, err, address.ErrNotFound)
	})
}

func TestPlaceOrderCartOwnership(t *testing.T) {
	store := placementFixture()
	svc := newOrderService(store, &stubProvider{})

	req := placeReq(MethodCash)
	req.UserID = "intruder"
	_, err := svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, cart.ErrNotFound)
}

func TestPlaceOrderUnsupportedMethod(t *testing.T) {
	store := placementFixture()
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(PaymentMethod("cheque")))
	assert.Error(t, err)
	assert.Empty(t, store.orders)
}

func TestPlaceOrderSnapshotsCoupon(t *testing.T) {
	store := placementFixture()
	expires := testNow.Add(24 * time.Hour)
	store.coupons["cp-1"] = coupon.Coupon{
		ID: "cp-1", Code: "SAVE50",
		DiscountType: catalog.DiscountFixed, DiscountValue: decimal.NewFromInt(50),
		ExpiresAt: &expires,
	}
	store.cart.CouponID = "cp-1"
	store.cart.DiscountType = catalog.DiscountFixed
	store.cart.DiscountValue = decimal.NewFromInt(50)
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))
	require.NoError(t, err)

	o := singleOrder(t, store)
	assert.Equal(t, "cp-1", o.CouponID)
	assert.True(t, decimal.NewFromInt(500).Equal(o.OriginalPrice()))
	assert.True(t, decimal.NewFromInt(450).Equal(o.TotalPrice()))
	assert.Empty(t, store.cart.CouponID, "coupon must be detached from the cart")
}

func TestPlaceOrderCouponEditedAfterApply(t *testing.T) {
	store := placementFixture()
	expires := testNow.Add(24 * time.Hour)
	store.coupons["cp-1"] = coupon.Coupon{
		ID: "cp-1", DiscountType: catalog.DiscountFixed,
		DiscountValue: decimal.NewFromInt(80), ExpiresAt: &expires,
	}
	store.cart.CouponID = "cp-1"
	store.cart.DiscountType = catalog.DiscountFixed
	store.cart.DiscountValue = decimal.NewFromInt(50)
	svc := newOrderService(store, &stubProvider{})

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodCash))

	var verr *cart.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "applied coupon has changed since it was applied", verr.Message)
	assert.Empty(t, store.orders)
}

func TestVerifyPayment(t *testing.T) {
	store := placementFixture()
	provider := &stubProvider{handle: "pi_123", verified: "pi_123"}
	svc := newOrderService(store, provider)

	_, err := svc.PlaceOrder(context.Background(), placeReq(MethodOnline))
	require.NoError(t, err)

	t.Run("marks order paid", func(t *testing.T) {
		o, err := svc.VerifyPayment(context.Background(), "u1", payment.Confirmation{Handle: "pi_123"})
		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.Equal(t, PaymentPaid, store.orders[o.ID].PaymentStatus)
	})

	t.Run("idempotent for an already paid order", func(t *testing.T) {
		o, err := svc.VerifyPayment(context.Background(), "u1", payment.Confirmation{Handle: "pi_123"})
		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
	})

	t.Run("wrong user", func(t *testing.T) {
		_, err := svc.VerifyPayment(context.Background(), "u2", payment.Confirmation{Handle: "pi_123"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("provider rejects confirmation", func(t *testing.T) {
		provider.verifyErr = payment.ErrNotConfirmed
		_, err := svc.VerifyPayment(context.Background(), "u1", payment.Confirmation{Handle: "pi_123"})
		assert.ErrorIs(t, err, payment.ErrNotConfirmed)
	})
}
