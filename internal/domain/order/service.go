package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"

	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/payment"
	"github.com/karomart/backend/internal/domain/wallet"
)

// Notifier delivers best-effort order notifications. Failures are logged
// and never affect the order.
type Notifier interface {
	OrderPlaced(ctx context.Context, email string, o *Order)
}

// Service coordinates order placement, payment verification and reads.
type Service struct {
	store    Store
	provider payment.Provider
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service. notifier may be nil.
func NewService(store Store, provider payment.Provider, notifier Notifier) *Service {
	return &Service{store: store, provider: provider, notifier: notifier, now: time.Now}
}

// PlaceOrderRequest is the input to PlaceOrder. Email, when set, receives a
// best-effort confirmation after commit.
type PlaceOrderRequest struct {
	CartID    string
	UserID    string
	AddressID string
	Method    PaymentMethod
	Email     string
}

// PlaceOrderResult is the success payload: the order id and, for non-cash
// methods, the gateway handle the client completes payment against.
type PlaceOrderResult struct {
	OrderID       string
	PaymentHandle string
}

// PlaceOrder turns the user's validated cart into an order inside a single
// transaction: validate, enforce the cash ceiling, decrement stock
// conditionally per line, snapshot the address, settle per payment method,
// clear the cart and create the order. Any failure rolls every write back.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if !req.Method.Valid() {
		return nil, errors.Errorf("unsupported payment method %q", req.Method)
	}

	var placed *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.Carts().GetByID(ctx, req.CartID, req.UserID)
		if err != nil {
			return err
		}
		products, err := s.liveProducts(ctx, tx, c)
		if err != nil {
			return err
		}
		couponState, err := s.couponState(ctx, tx, c)
		if err != nil {
			return err
		}

		now := s.now()
		if err := cart.Validate(c, products, couponState, now); err != nil {
			return err
		}

		total := c.Total()
		if req.Method == MethodCash && total.GreaterThan(CashLimit) {
			return ErrCashLimitExceeded
		}

		// Conditional decrements are the race detector: validation saw
		// enough stock, but another order may commit first.
		decremented := 0
		for _, item := range c.Items {
			err := tx.Products().DecrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, catalog.ErrInsufficientStock) {
				continue
			}
			if err != nil {
				return errors.Wrap(err, "decrement stock")
			}
			decremented++
		}
		if decremented != len(c.Items) {
			return ErrStockChanged
		}

		addr, err := tx.Addresses().GetByID(ctx, req.AddressID, req.UserID)
		if err != nil {
			return err
		}

		o := &Order{
			ID:            uuid.New().String(),
			UserID:        req.UserID,
			Items:         orderItems(c, products),
			Address:       addr.Snapshot(),
			Method:        req.Method,
			Status:        StatusPending,
			PaymentStatus: PaymentIncomplete,
			CouponID:      c.CouponID,
			DiscountType:  c.DiscountType,
			DiscountValue: c.DiscountValue,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		switch req.Method {
		case MethodCash:
			// Settled at delivery.
		case MethodOnline:
			handle, err := s.provider.CreateOrder(ctx, total, o.ID)
			if err != nil {
				return errors.Wrap(err, "create payment order")
			}
			o.PaymentHandle = handle
		case MethodWallet:
			if err := tx.Wallets().Debit(ctx, req.UserID, total, wallet.ReasonOrderPayment, o.ID); err != nil {
				return err
			}
			o.PaymentStatus = PaymentPaid
		}

		if err := tx.Carts().Clear(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && req.Email != "" {
		go s.notifier.OrderPlaced(context.WithoutCancel(ctx), req.Email, placed)
	}
	return &PlaceOrderResult{OrderID: placed.ID, PaymentHandle: placed.PaymentHandle}, nil
}

// liveProducts loads the current state of every product referenced by the
// cart, keyed by id. Missing products are simply absent from the map; the
// validator turns that into a per-item error.
func (s *Service) liveProducts(ctx context.Context, tx Tx, c *cart.Cart) (map[string]catalog.Product, error) {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	list, err := tx.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	products := make(map[string]catalog.Product, len(list))
	for _, p := range list {
		products[p.ID] = p
	}
	return products, nil
}

// couponState loads the live state of the cart's coupon for validation. A
// missing record maps to nil, which the validator rejects.
func (s *Service) couponState(ctx context.Context, tx Tx, c *cart.Cart) (*cart.CouponState, error) {
	if !c.HasCoupon() {
		return nil, nil
	}
	cp, err := tx.Coupons().GetByID(ctx, c.CouponID)
	if errors.Is(err, coupon.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load coupon")
	}
	return &cart.CouponState{
		DiscountType:  cp.DiscountType,
		DiscountValue: cp.DiscountValue,
		ExpiresAt:     cp.ExpiresAt,
		Deleted:       cp.Deleted,
	}, nil
}

func orderItems(c *cart.Cart, products map[string]catalog.Product) []Item {
	items := make([]Item, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, Item{
			ProductID: line.ProductID,
			Name:      products[line.ProductID].Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	return items
}

// VerifyPayment checks a client payment confirmation with the gateway and
// marks the matching order paid.
func (s *Service) VerifyPayment(ctx context.Context, userID string, conf payment.Confirmation) (*Order, error) {
	handle, err := s.provider.VerifyConfirmation(ctx, conf)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	o, err := repos.Orders().GetByPaymentHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.PaymentStatus == PaymentPaid {
		return o, nil
	}

	o.PaymentStatus = PaymentPaid
	o.UpdatedAt = s.now()
	if err := repos.Orders().Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	zctx.From(ctx).Info("payment verified",
		zap.String("order_id", o.ID),
		zap.String("payment_handle", handle),
	)
	return o, nil
}

// Get returns one of the user's orders.
func (s *Service) Get(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.store.Repos().Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	return s.store.Repos().Orders().List(ctx, ListFilter{UserID: userID, Limit: limit, Offset: offset})
}

// ListAll returns all orders for the admin view.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]Order, error) {
	filter.UserID = ""
	return s.store.Repos().Orders().List(ctx, filter)
}
