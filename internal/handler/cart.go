package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/cart"
)

// cartResponse is the full cart view: lines joined with live product detail
// plus the computed totals.
type cartResponse struct {
	ID       string          `json:"id"`
	Items    []cartLineView  `json:"items"`
	Coupon   *cartCouponView `json:"coupon,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type cartLineView struct {
	Product   *productResponse `json:"product,omitempty"`
	ProductID string           `json:"productId"`
	Price     decimal.Decimal  `json:"price"`
	Quantity  int              `json:"quantity"`
	LineTotal decimal.Decimal  `json:"lineTotal"`
}

type cartCouponView struct {
	ID            string          `json:"id"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// GetCart returns the user's cart with live product detail and totals.
func (h *Handler) GetCart(c *gin.Context) {
	userCart, err := h.carts.GetByUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}

	ids := make([]string, 0, len(userCart.Items))
	for _, item := range userCart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.products.GetByIDs(c.Request.Context(), ids)
	if err != nil {
		fail(c, err)
		return
	}

	now := time.Now()
	views := make(map[string]*productResponse, len(products))
	for i := range products {
		v := h.productView(&products[i], now)
		views[products[i].ID] = &v
	}

	resp := cartResponse{
		ID:       userCart.ID,
		Items:    make([]cartLineView, 0, len(userCart.Items)),
		Subtotal: userCart.Subtotal(),
		Total:    userCart.Total(),
	}
	for _, item := range userCart.Items {
		resp.Items = append(resp.Items, cartLineView{
			Product:   views[item.ProductID],
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	if userCart.HasCoupon() {
		resp.Coupon = &cartCouponView{
			ID:            userCart.CouponID,
			DiscountType:  string(userCart.DiscountType),
			DiscountValue: userCart.DiscountValue,
		}
	}
	ok(c, http.StatusOK, resp)
}

// GetCartMinimal returns the cart lines and totals without product detail.
func (h *Handler) GetCartMinimal(c *gin.Context) {
	userCart, err := h.carts.GetByUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}

	resp := cartResponse{
		ID:       userCart.ID,
		Items:    make([]cartLineView, 0, len(userCart.Items)),
		Subtotal: userCart.Subtotal(),
		Total:    userCart.Total(),
	}
	for _, item := range userCart.Items {
		resp.Items = append(resp.Items, cartLineView{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	if userCart.HasCoupon() {
		resp.Coupon = &cartCouponView{
			ID:            userCart.CouponID,
			DiscountType:  string(userCart.DiscountType),
			DiscountValue: userCart.DiscountValue,
		}
	}
	ok(c, http.StatusOK, resp)
}

type setCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	// Quantity replaces the line's quantity; zero removes the line.
	Quantity *int `json:"quantity" binding:"required"`
}

// SetCartItem adds a product to the cart or re-sets an existing line.
func (h *Handler) SetCartItem(c *gin.Context) {
	var req setCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if *req.Quantity < 0 {
		failWith(c, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	if err := h.cartSvc.SetProduct(c.Request.Context(), userID(c), req.ProductID, *req.Quantity); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "cart updated")
}

// RemoveCartItem drops one line from the cart.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	if err := h.cartSvc.RemoveProduct(c.Request.Context(), userID(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "item removed")
}

// ClearCart empties the cart and detaches any applied coupon. Clearing a
// user who has no cart yet is a no-op.
func (h *Handler) ClearCart(c *gin.Context) {
	err := h.cartSvc.Clear(c.Request.Context(), userID(c))
	if err != nil && !errors.Is(err, cart.ErrNotFound) {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "cart cleared")
}
