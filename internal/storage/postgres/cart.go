package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
)

const (
	getCartByIDSQL = `SELECT id, user_id, coupon_id, discount_type, discount_value, created_at, updated_at
		FROM carts WHERE id = $1 AND user_id = $2`

	getCartByUserSQL = `SELECT id, user_id, coupon_id, discount_type, discount_value, created_at, updated_at
		FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT product_id, price, quantity FROM cart_items
		WHERE cart_id = $1 ORDER BY added_at`

	upsertCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id`

	upsertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, price, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET price = $3, quantity = $4`

	removeCartItemSQL = `DELETE FROM cart_items
		WHERE product_id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`

	clearCartSQL = `UPDATE carts
		SET coupon_id = NULL, discount_type = NULL, discount_value = NULL, updated_at = now()
		WHERE user_id = $1 RETURNING id`

	attachCouponSQL = `UPDATE carts
		SET coupon_id = $2, discount_type = $3, discount_value = $4, updated_at = now()
		WHERE user_id = $1`

	detachCouponSQL = `UPDATE carts
		SET coupon_id = NULL, discount_type = NULL, discount_value = NULL, updated_at = now()
		WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. The cart
// row is created lazily by SetItem.
type CartRepository struct {
	db DBTX
}

// NewCartRepository returns a CartRepository over db.
func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// GetByID returns the cart only when it belongs to the given user.
func (r *CartRepository) GetByID(ctx context.Context, id, userID string) (*cart.Cart, error) {
	return r.get(ctx, getCartByIDSQL, id, userID)
}

// GetByUser returns the user's cart.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.get(ctx, getCartByUserSQL, userID)
}

func (r *CartRepository) get(ctx context.Context, sql string, args ...any) (*cart.Cart, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "getting cart")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting cart")
	}

	itemRows, err := r.db.Query(ctx, getCartItemsSQL, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "getting cart items")
	}
	c.Items, err = pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.ProductID, &item.Price, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning cart items")
	}
	return &c, nil
}

// SetItem upserts the user's cart and sets the line for productID to the
// given quantity and price snapshot.
func (r *CartRepository) SetItem(ctx context.Context, userID, productID string, quantity int, price decimal.Decimal) error {
	var cartID string
	err := r.db.QueryRow(ctx, upsertCartSQL, uuid.New().String(), userID).Scan(&cartID)
	if err != nil {
		return errors.Wrap(err, "upserting cart")
	}
	if _, err := r.db.Exec(ctx, upsertCartItemSQL, cartID, productID, price, quantity); err != nil {
		return errors.Wrap(err, "upserting cart item")
	}
	return nil
}

// RemoveItem drops the line for productID from the user's cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	tag, err := r.db.Exec(ctx, removeCartItemSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "removing cart item")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Clear empties the cart's line items and detaches any applied coupon,
// keeping the cart row.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	var cartID string
	err := r.db.QueryRow(ctx, clearCartSQL, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return errors.Wrap(err, "clearing cart items")
	}
	return nil
}

// AttachCoupon snapshots the coupon's discount onto the cart.
func (r *CartRepository) AttachCoupon(ctx context.Context, userID, couponID string, discountType catalog.DiscountType, discountValue decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, attachCouponSQL, userID, couponID, string(discountType), discountValue)
	if err != nil {
		return errors.Wrap(err, "attaching coupon")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// DetachCoupon removes the coupon snapshot from the cart.
func (r *CartRepository) DetachCoupon(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, detachCouponSQL, userID)
	if err != nil {
		return errors.Wrap(err, "detaching coupon")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c             cart.Cart
		couponID      *string
		discountType  *string
		discountValue *decimal.Decimal
	)
	err := row.Scan(&c.ID, &c.UserID, &couponID, &discountType, &discountValue, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if couponID != nil {
		c.CouponID = *couponID
	}
	if discountType != nil {
		c.DiscountType = catalog.DiscountType(*discountType)
	}
	if discountValue != nil {
		c.DiscountValue = *discountValue
	}
	return c, nil
}
