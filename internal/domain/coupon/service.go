package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/karomart/backend/internal/domain/cart"
)

// Service applies coupons to carts and carries the admin CRUD rules.
type Service struct {
	coupons Repository
	carts   cart.Repository
	now     func() time.Time
}

// NewService creates a coupon Service.
func NewService(coupons Repository, carts cart.Repository) *Service {
	return &Service{coupons: coupons, carts: carts, now: time.Now}
}

// Applicable returns the coupons the user could apply to their cart right
// now: valid, minimum order satisfied, per-user limit not reached. An empty
// slice is returned when the cart already carries a coupon.
func (s *Service) Applicable(ctx context.Context, userID string) ([]Coupon, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.HasCoupon() {
		return []Coupon{}, nil
	}

	all, err := s.coupons.List(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	now := s.now()
	total := c.Total()
	applicable := make([]Coupon, 0, len(all))
	for _, cp := range all {
		if !cp.ValidAt(now) || total.LessThan(cp.MinOrderAmount) {
			continue
		}
		if cp.LimitPerUser > 0 {
			count, err := s.coupons.RedemptionCount(ctx, cp.ID, userID)
			if err != nil {
				return nil, errors.Wrap(err, "count redemptions")
			}
			if count >= cp.LimitPerUser {
				continue
			}
		}
		applicable = append(applicable, cp)
	}
	return applicable, nil
}

// ApplyToCart validates the coupon against the user's cart, snapshots its
// discount type and value onto the cart and records the redemption.
func (s *Service) ApplyToCart(ctx context.Context, userID, code string) error {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if c.HasCoupon() {
		return ErrAlreadyApplied
	}

	cp, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if !cp.ValidAt(s.now()) {
		return ErrExpired
	}
	if c.Total().LessThan(cp.MinOrderAmount) {
		return ErrMinOrderNotMet
	}
	if cp.LimitPerUser > 0 {
		count, err := s.coupons.RedemptionCount(ctx, cp.ID, userID)
		if err != nil {
			return errors.Wrap(err, "count redemptions")
		}
		if count >= cp.LimitPerUser {
			return ErrLimitReached
		}
	}

	if err := s.carts.AttachCoupon(ctx, userID, cp.ID, cp.DiscountType, cp.DiscountValue); err != nil {
		return errors.Wrap(err, "attach coupon")
	}
	if err := s.coupons.RecordRedemption(ctx, cp.ID, userID); err != nil {
		return errors.Wrap(err, "record redemption")
	}
	return nil
}

// RemoveFromCart detaches the applied coupon from the user's cart and
// reverts its redemption bookkeeping.
func (s *Service) RemoveFromCart(ctx context.Context, userID string) error {
	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !c.HasCoupon() {
		return ErrNotApplied
	}

	if err := s.coupons.RemoveRedemption(ctx, c.CouponID, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "remove redemption")
	}
	if err := s.carts.DetachCoupon(ctx, userID); err != nil {
		return errors.Wrap(err, "detach coupon")
	}
	return nil
}

// Create registers a new coupon, rejecting a duplicate code. The code check
// is a read-then-write; it is not backed by a unique constraint.
func (s *Service) Create(ctx context.Context, cp *Coupon) error {
	existing, err := s.coupons.GetByCode(ctx, cp.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "check coupon code")
	}
	if existing != nil {
		return ErrDuplicateCode
	}

	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	cp.UsedCount = 0
	cp.CreatedAt = s.now()
	cp.UpdatedAt = cp.CreatedAt
	return s.coupons.Create(ctx, cp)
}

// Update edits a coupon in place. Carts that already snapshotted the old
// discount will fail checkout validation until the coupon is re-applied.
func (s *Service) Update(ctx context.Context, cp *Coupon) error {
	cp.UpdatedAt = s.now()
	return s.coupons.Update(ctx, cp)
}

// Delete soft-deletes a coupon.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.coupons.SoftDelete(ctx, id)
}

// List returns all coupons, optionally including soft-deleted ones.
func (s *Service) List(ctx context.Context, includeDeleted bool) ([]Coupon, error) {
	return s.coupons.List(ctx, includeDeleted)
}

// Get returns a coupon by id.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	return s.coupons.GetByID(ctx, id)
}
