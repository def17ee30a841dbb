package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/payment"
	"github.com/karomart/backend/internal/domain/wallet"
)

// memStore is an in-memory Store with real rollback semantics: InTx
// snapshots the state up front and restores it when fn fails, so atomicity
// properties can be asserted against it.
type memStore struct {
	products  map[string]catalog.Product
	cart      *cart.Cart
	coupons   map[string]coupon.Coupon
	addresses map[string]address.Address
	balances  map[string]decimal.Decimal
	entries   []wallet.Entry
	orders    map[string]Order

	failOrderCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]catalog.Product),
		coupons:   make(map[string]coupon.Coupon),
		addresses: make(map[string]address.Address),
		balances:  make(map[string]decimal.Decimal),
		orders:    make(map[string]Order),
	}
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range m.products {
		cp.products[k] = v
	}
	for k, v := range m.coupons {
		cp.coupons[k] = v
	}
	for k, v := range m.addresses {
		cp.addresses[k] = v
	}
	for k, v := range m.balances {
		cp.balances[k] = v
	}
	for k, v := range m.orders {
		cp.orders[k] = v
	}
	cp.entries = append([]wallet.Entry(nil), m.entries...)
	if m.cart != nil {
		c := *m.cart
		c.Items = append([]cart.Item(nil), m.cart.Items...)
		cp.cart = &c
	}
	return cp
}

func (m *memStore) restore(from *memStore) {
	m.products = from.products
	m.coupons = from.coupons
	m.addresses = from.addresses
	m.balances = from.balances
	m.entries = from.entries
	m.orders = from.orders
	m.cart = from.cart
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	saved := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(saved)
		return err
	}
	return nil
}

func (m *memStore) Repos() Tx { return m }

func (m *memStore) Products() catalog.ProductRepository { return &memProducts{m} }
func (m *memStore) Carts() cart.Repository              { return &memCartRepo{m} }
func (m *memStore) Coupons() coupon.Repository          { return &memCouponRepo{m} }
func (m *memStore) Addresses() address.Repository       { return &memAddressRepo{m} }
func (m *memStore) Wallets() wallet.Repository          { return &memWalletRepo{m} }
func (m *memStore) Orders() Repository                  { return &memOrderRepo{m} }

type memProducts struct {
	s *memStore
}

var _ catalog.ProductRepository = (*memProducts)(nil)

func (r *memProducts) List(context.Context, catalog.ProductFilter) ([]catalog.Product, error) {
	return nil, nil
}

func (r *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (r *memProducts) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) Create(context.Context, *catalog.Product) error       { return nil }
func (r *memProducts) Update(context.Context, *catalog.Product) error       { return nil }
func (r *memProducts) SetListed(context.Context, string, bool) error        { return nil }
func (r *memProducts) SoftDelete(context.Context, string) error             { return nil }
func (r *memProducts) ApplyOffer(context.Context, []string, catalog.Discount) (int, error) {
	return 0, nil
}
func (r *memProducts) ListActiveOffers(context.Context, time.Time) ([]catalog.Product, error) {
	return nil, nil
}

func (r *memProducts) DecrementStock(_ context.Context, id string, qty int) error {
	p, ok := r.s.products[id]
	if !ok || p.Stock < qty {
		return catalog.ErrInsufficientStock
	}
	p.Stock -= qty
	r.s.products[id] = p
	return nil
}

type memCartRepo struct {
	s *memStore
}

var _ cart.Repository = (*memCartRepo)(nil)

func (r *memCartRepo) GetByID(_ context.Context, id, userID string) (*cart.Cart, error) {
	if r.s.cart == nil || r.s.cart.ID != id || r.s.cart.UserID != userID {
		return nil, cart.ErrNotFound
	}
	return r.s.cart, nil
}

func (r *memCartRepo) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	if r.s.cart == nil || r.s.cart.UserID != userID {
		return nil, cart.ErrNotFound
	}
	return r.s.cart, nil
}

func (r *memCartRepo) SetItem(context.Context, string, string, int, decimal.Decimal) error {
	return nil
}
func (r *memCartRepo) RemoveItem(context.Context, string, string) error { return nil }

func (r *memCartRepo) Clear(_ context.Context, userID string) error {
	if r.s.cart == nil || r.s.cart.UserID != userID {
		return cart.ErrNotFound
	}
	r.s.cart.Items = nil
	r.s.cart.CouponID = ""
	return nil
}

func (r *memCartRepo) AttachCoupon(context.Context, string, string, catalog.DiscountType, decimal.Decimal) error {
	return nil
}
func (r *memCartRepo) DetachCoupon(context.Context, string) error { return nil }

type memCouponRepo struct {
	s *memStore
}

var _ coupon.Repository = (*memCouponRepo)(nil)

func (r *memCouponRepo) List(context.Context, bool) ([]coupon.Coupon, error) { return nil, nil }

func (r *memCouponRepo) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	c, ok := r.s.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *memCouponRepo) GetByCode(context.Context, string) (*coupon.Coupon, error) {
	return nil, coupon.ErrNotFound
}
func (r *memCouponRepo) Create(context.Context, *coupon.Coupon) error { return nil }
func (r *memCouponRepo) Update(context.Context, *coupon.Coupon) error { return nil }
func (r *memCouponRepo) SoftDelete(context.Context, string) error     { return nil }
func (r *memCouponRepo) RedemptionCount(context.Context, string, string) (int, error) {
	return 0, nil
}
func (r *memCouponRepo) RecordRedemption(context.Context, string, string) error { return nil }
func (r *memCouponRepo) RemoveRedemption(context.Context, string, string) error { return nil }

type memAddressRepo struct {
	s *memStore
}

var _ address.Repository = (*memAddressRepo)(nil)

func (r *memAddressRepo) List(context.Context, string) ([]address.Address, error) {
	return nil, nil
}

func (r *memAddressRepo) GetByID(_ context.Context, id, userID string) (*address.Address, error) {
	a, ok := r.s.addresses[id]
	if !ok || a.UserID != userID {
		return nil, address.ErrNotFound
	}
	return &a, nil
}

func (r *memAddressRepo) Create(context.Context, *address.Address) error   { return nil }
func (r *memAddressRepo) Update(context.Context, *address.Address) error   { return nil }
func (r *memAddressRepo) Delete(context.Context, string, string) error     { return nil }
func (r *memAddressRepo) SetDefault(context.Context, string, string) error { return nil }

type memWalletRepo struct {
	s *memStore
}

var _ wallet.Repository = (*memWalletRepo)(nil)

func (r *memWalletRepo) GetByUser(_ context.Context, userID string) (*wallet.Wallet, error) {
	b, ok := r.s.balances[userID]
	if !ok {
		return nil, wallet.ErrNotFound
	}
	return &wallet.Wallet{ID: "w-" + userID, UserID: userID, Balance: b}, nil
}

func (r *memWalletRepo) Ensure(_ context.Context, userID string) (*wallet.Wallet, error) {
	if _, ok := r.s.balances[userID]; !ok {
		r.s.balances[userID] = decimal.Zero
	}
	return r.GetByUser(context.Background(), userID)
}

func (r *memWalletRepo) Credit(_ context.Context, userID string, amount decimal.Decimal, reason wallet.Reason, orderID string) error {
	r.s.balances[userID] = r.s.balances[userID].Add(amount)
	r.s.entries = append(r.s.entries, wallet.Entry{
		ID: uuid.New().String(), WalletID: "w-" + userID,
		Amount: amount, Reason: reason, OrderID: orderID,
	})
	return nil
}

func (r *memWalletRepo) Debit(_ context.Context, userID string, amount decimal.Decimal, reason wallet.Reason, orderID string) error {
	b, ok := r.s.balances[userID]
	if !ok || b.LessThan(amount) {
		return wallet.ErrInsufficientBalance
	}
	r.s.balances[userID] = b.Sub(amount)
	r.s.entries = append(r.s.entries, wallet.Entry{
		ID: uuid.New().String(), WalletID: "w-" + userID,
		Amount: amount.Neg(), Reason: reason, OrderID: orderID,
	})
	return nil
}

func (r *memWalletRepo) History(_ context.Context, userID string, _, _ int) ([]wallet.Entry, error) {
	out := make([]wallet.Entry, 0)
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].WalletID == "w-"+userID {
			out = append(out, r.s.entries[i])
		}
	}
	return out, nil
}

type memOrderRepo struct {
	s *memStore
}

var _ Repository = (*memOrderRepo)(nil)

func (r *memOrderRepo) Create(_ context.Context, o *Order) error {
	if r.s.failOrderCreate {
		return errors.New("storage failure injected")
	}
	r.s.orders[o.ID] = *o
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) GetByPaymentHandle(_ context.Context, handle string) (*Order, error) {
	for _, o := range r.s.orders {
		if o.PaymentHandle == handle {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memOrderRepo) List(_ context.Context, filter ListFilter) ([]Order, error) {
	out := make([]Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *memOrderRepo) Update(_ context.Context, o *Order) error {
	if _, ok := r.s.orders[o.ID]; !ok {
		return ErrNotFound
	}
	r.s.orders[o.ID] = *o
	return nil
}

// stubProvider is a programmable payment gateway.
type stubProvider struct {
	handle    string
	createErr error
	verified  string
	verifyErr error
	created   int
}

func (p *stubProvider) CreateOrder(context.Context, decimal.Decimal, string) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.created++
	return p.handle, nil
}

func (p *stubProvider) VerifyConfirmation(context.Context, payment.Confirmation) (string, error) {
	if p.verifyErr != nil {
		return "", p.verifyErr
	}
	return p.verified, nil
}
