package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
)

const couponColumns = `id, code, description, discount_type, discount_value,
	min_order_amount, limit_per_user, used_count, expires_at, deleted, created_at, updated_at`

const (
	getCouponByIDSQL   = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE UPPER(code) = UPPER($1) AND NOT deleted
		ORDER BY created_at DESC LIMIT 1`

	redemptionCountSQL = `SELECT COALESCE(
		(SELECT count FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2), 0)`

	recordRedemptionSQL = `INSERT INTO coupon_redemptions (coupon_id, user_id, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_id, user_id) DO UPDATE SET count = coupon_redemptions.count + 1`

	removeRedemptionSQL = `UPDATE coupon_redemptions SET count = count - 1
		WHERE coupon_id = $1 AND user_id = $2 AND count > 0`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	db DBTX
}

// NewCouponRepository returns a CouponRepository over db.
func NewCouponRepository(db DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

// List returns coupons newest first.
func (r *CouponRepository) List(ctx context.Context, includeDeleted bool) ([]coupon.Coupon, error) {
	sql := `SELECT ` + couponColumns + ` FROM coupons`
	if !includeDeleted {
		sql += ` WHERE NOT deleted`
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(err, "listing coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// GetByID returns a coupon by id.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.get(ctx, getCouponByIDSQL, id)
}

// GetByCode looks up a live coupon by its code, case-insensitively.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.get(ctx, getCouponByCodeSQL, code)
}

func (r *CouponRepository) get(ctx context.Context, sql, arg string) (*coupon.Coupon, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "getting coupon %q", arg)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting coupon %q", arg)
	}
	return &c, nil
}

// Create inserts a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.db.Exec(ctx, `INSERT INTO coupons
		(id, code, description, discount_type, discount_value, min_order_amount,
		 limit_per_user, used_count, expires_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, FALSE)`,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinOrderAmount, c.LimitPerUser, c.ExpiresAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating coupon %q", c.Code)
	}
	return nil
}

// Update rewrites the coupon's mutable fields. The usage counter is only
// moved through the redemption operations.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.db.Exec(ctx, `UPDATE coupons
		SET code = $2, description = $3, discount_type = $4, discount_value = $5,
		    min_order_amount = $6, limit_per_user = $7, expires_at = $8, updated_at = now()
		WHERE id = $1 AND NOT deleted`,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MinOrderAmount, c.LimitPerUser, c.ExpiresAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating coupon %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SoftDelete marks the coupon deleted.
func (r *CouponRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE coupons SET deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return errors.Wrapf(err, "deleting coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// RedemptionCount reports how many times the user redeemed the coupon.
func (r *CouponRepository) RedemptionCount(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, redemptionCountSQL, couponID, userID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting redemptions")
	}
	return count, nil
}

// RecordRedemption increments the user's redemption count and the coupon's
// global counter.
func (r *CouponRepository) RecordRedemption(ctx context.Context, couponID, userID string) error {
	if _, err := r.db.Exec(ctx, recordRedemptionSQL, couponID, userID); err != nil {
		return errors.Wrap(err, "recording redemption")
	}
	if _, err := r.db.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, couponID); err != nil {
		return errors.Wrap(err, "incrementing coupon uses")
	}
	return nil
}

// RemoveRedemption reverts one of the user's redemptions.
func (r *CouponRepository) RemoveRedemption(ctx context.Context, couponID, userID string) error {
	tag, err := r.db.Exec(ctx, removeRedemptionSQL, couponID, userID)
	if err != nil {
		return errors.Wrap(err, "removing redemption")
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	if _, err := r.db.Exec(ctx,
		`UPDATE coupons SET used_count = GREATEST(used_count - 1, 0), updated_at = now() WHERE id = $1`, couponID); err != nil {
		return errors.Wrap(err, "decrementing coupon uses")
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		expiresAt    *time.Time
		minOrder     decimal.Decimal
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue,
		&minOrder, &c.LimitPerUser, &c.UsedCount, &expiresAt, &c.Deleted,
		&c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = catalog.DiscountType(discountType)
	c.MinOrderAmount = minOrder
	c.ExpiresAt = expiresAt
	return c, err
}
