package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
)

// ListApplicableCoupons returns the coupons the user can apply to their
// cart right now.
func (h *Handler) ListApplicableCoupons(c *gin.Context) {
	coupons, err := h.coupons.Applicable(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, coupons)
}

// ApplyCoupon attaches a coupon code to the user's cart.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.coupons.ApplyToCart(c.Request.Context(), userID(c), req.Code); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "coupon applied")
}

// RemoveCoupon detaches the applied coupon from the user's cart.
func (h *Handler) RemoveCoupon(c *gin.Context) {
	if err := h.coupons.RemoveFromCart(c.Request.Context(), userID(c)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "coupon removed")
}

// ---- admin ----

type couponRequest struct {
	Code           string               `json:"code" binding:"required"`
	Description    string               `json:"description"`
	DiscountType   catalog.DiscountType `json:"discountType" binding:"required,oneof=percentage fixed"`
	DiscountValue  decimal.Decimal      `json:"discountValue" binding:"required"`
	MinOrderAmount decimal.Decimal      `json:"minOrderAmount"`
	LimitPerUser   int                  `json:"limitPerUser" binding:"min=0"`
	ExpiresAt      *time.Time           `json:"expiresAt"`
}

// AdminListCoupons returns all coupons, optionally including deleted ones.
func (h *Handler) AdminListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context(), c.Query("includeDeleted") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, coupons)
}

// AdminCreateCoupon registers a new coupon, rejecting duplicate codes.
func (h *Handler) AdminCreateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cp := &coupon.Coupon{
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		LimitPerUser:   req.LimitPerUser,
		ExpiresAt:      req.ExpiresAt,
	}
	if err := h.coupons.Create(c.Request.Context(), cp); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, cp)
}

// AdminUpdateCoupon edits a coupon in place. Carts holding the old discount
// snapshot will fail checkout validation until the coupon is re-applied.
func (h *Handler) AdminUpdateCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cp, err := h.coupons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	cp.Code = req.Code
	cp.Description = req.Description
	cp.DiscountType = req.DiscountType
	cp.DiscountValue = req.DiscountValue
	cp.MinOrderAmount = req.MinOrderAmount
	cp.LimitPerUser = req.LimitPerUser
	cp.ExpiresAt = req.ExpiresAt
	if err := h.coupons.Update(c.Request.Context(), cp); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// AdminDeleteCoupon soft-deletes a coupon. Carts holding it fail checkout
// validation until the coupon is removed from them.
func (h *Handler) AdminDeleteCoupon(c *gin.Context) {
	if err := h.coupons.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "coupon deleted")
}
