package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karomart/backend/internal/domain/order"
	"github.com/karomart/backend/internal/domain/payment"
)

type placeOrderRequest struct {
	CartID    string              `json:"cartId" binding:"required"`
	AddressID string              `json:"addressId" binding:"required"`
	Method    order.PaymentMethod `json:"paymentMethod" binding:"required,oneof=cod online wallet"`
}

type placeOrderResponse struct {
	OrderID       string `json:"orderId"`
	PaymentHandle string `json:"paymentHandle,omitempty"`
}

// PlaceOrder turns the user's cart into an order.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), order.PlaceOrderRequest{
		CartID:    req.CartID,
		UserID:    userID(c),
		AddressID: req.AddressID,
		Method:    req.Method,
		Email:     userEmail(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, placeOrderResponse{
		OrderID:       result.OrderID,
		PaymentHandle: result.PaymentHandle,
	})
}

// VerifyPayment confirms an online payment with the gateway and marks the
// matching order paid.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var conf payment.Confirmation
	if err := c.ShouldBindJSON(&conf); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.VerifyPayment(c.Request.Context(), userID(c), conf)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// ListOrders returns the user's orders, newest first.
func (h *Handler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.List(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, orders)
}

// GetOrder returns one of the user's orders.
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// CancelOrder cancels one of the user's orders, refunding paid orders to
// the wallet.
func (h *Handler) CancelOrder(c *gin.Context) {
	o, err := h.orders.Cancel(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// RequestReturn files a return request for one of the user's orders.
func (h *Handler) RequestReturn(c *gin.Context) {
	o, err := h.orders.RequestReturn(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// RetryPayment regenerates the gateway handle for an unpaid online order.
func (h *Handler) RetryPayment(c *gin.Context) {
	o, err := h.orders.RetryPayment(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, placeOrderResponse{OrderID: o.ID, PaymentHandle: o.PaymentHandle})
}

// ---- admin ----

// AdminListOrders returns all orders, optionally filtered by status.
func (h *Handler) AdminListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.ListAll(c.Request.Context(), order.ListFilter{
		Status: order.Status(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, orders)
}

// AdminSetOrderStatus overrides an order's status.
func (h *Handler) AdminSetOrderStatus(c *gin.Context) {
	var req struct {
		Status order.Status `json:"status" binding:"required,oneof=pending shipped completed cancelled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// AdminApproveReturn accepts a pending return request and refunds the
// order total to the owner's wallet.
func (h *Handler) AdminApproveReturn(c *gin.Context) {
	o, err := h.orders.ApproveReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// AdminRejectReturn denies a pending return request.
func (h *Handler) AdminRejectReturn(c *gin.Context) {
	o, err := h.orders.RejectReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}
