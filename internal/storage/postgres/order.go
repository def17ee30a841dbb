package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/order"
)

const orderColumns = `id, user_id, items, address, method, status, payment_status, payment_handle,
	coupon_id, discount_type, discount_value, cancelled_at, completed_at, created_at, updated_at`

const (
	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByHandleSQL = `SELECT ` + orderColumns + ` FROM orders WHERE payment_handle = $1`

	createOrderSQL = `INSERT INTO orders
		(id, user_id, items, address, method, status, payment_status, payment_handle,
		 coupon_id, discount_type, discount_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_status = $3, payment_handle = $4,
		    cancelled_at = $5, completed_at = $6, updated_at = $7
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Item and
// address snapshots are serialized to JSONB; they are immutable once written.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository over db.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return errors.Wrap(err, "marshaling order address")
	}

	var discountType *string
	var discountValue *decimal.Decimal
	if o.CouponID != "" {
		t := string(o.DiscountType)
		discountType = &t
		discountValue = &o.DiscountValue
	}

	_, err = r.db.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, addressJSON, string(o.Method), string(o.Status),
		string(o.PaymentStatus), o.PaymentHandle, o.CouponID, discountType, discountValue,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}
	return nil
}

// GetByID returns an order by id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderByIDSQL, id)
}

// GetByPaymentHandle returns the order carrying the gateway handle.
func (r *OrderRepository) GetByPaymentHandle(ctx context.Context, handle string) (*order.Order, error) {
	return r.get(ctx, getOrderByHandleSQL, handle)
}

func (r *OrderRepository) get(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", arg)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", arg)
	}
	return &o, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE TRUE`
	args := make([]any, 0, 2)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		sql += ` AND user_id = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sql += ` AND status = $` + strconv.Itoa(len(args))
	}
	sql += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filter.Offset)
		sql += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update rewrites the order's lifecycle fields. Item and address snapshots
// never change after creation.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), string(o.PaymentStatus), o.PaymentHandle,
		o.CancelledAt, o.CompletedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		addressJSON   []byte
		method        string
		status        string
		payStatus     string
		couponID      *string
		discountType  *string
		discountValue *decimal.Decimal
		cancelledAt   *time.Time
		completedAt   *time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &addressJSON, &method, &status, &payStatus,
		&o.PaymentHandle, &couponID, &discountType, &discountValue,
		&cancelledAt, &completedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, errors.Wrap(err, "unmarshaling order items")
	}
	var snap address.Snapshot
	if err := json.Unmarshal(addressJSON, &snap); err != nil {
		return o, errors.Wrap(err, "unmarshaling order address")
	}
	o.Address = snap

	o.Method = order.PaymentMethod(method)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(payStatus)
	if couponID != nil {
		o.CouponID = *couponID
	}
	if discountType != nil {
		o.DiscountType = catalog.DiscountType(*discountType)
	}
	if discountValue != nil {
		o.DiscountValue = *discountValue
	}
	o.CancelledAt = cancelledAt
	o.CompletedAt = completedAt
	return o, nil
}
