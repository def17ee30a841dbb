package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/order"
	"github.com/karomart/backend/internal/domain/payment"
	"github.com/karomart/backend/internal/domain/wallet"
)

// fail classifies a domain error into an HTTP status and a failure envelope.
// Unexpected errors are logged with their chain and answered with a generic
// 500 so internals never leak to clients.
func fail(c *gin.Context, err error) {
	var vErr *cart.ValidationError
	if errors.As(err, &vErr) {
		body := gin.H{"success": false, "message": vErr.Message}
		if len(vErr.Items) > 0 {
			body["errors"] = vErr.Items
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound):
		failWith(c, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrStockChanged),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrReturnPending),
		errors.Is(err, coupon.ErrDuplicateCode):
		failWith(c, http.StatusConflict, err.Error())

	case errors.Is(err, cart.ErrProductDeleted),
		errors.Is(err, cart.ErrNotEnoughStock),
		errors.Is(err, order.ErrCashLimitExceeded),
		errors.Is(err, order.ErrPaymentNotRetryable),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrMinOrderNotMet),
		errors.Is(err, coupon.ErrLimitReached),
		errors.Is(err, coupon.ErrAlreadyApplied),
		errors.Is(err, coupon.ErrNotApplied),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, payment.ErrNotConfirmed):
		failWith(c, http.StatusBadRequest, err.Error())

	default:
		zctx.From(c.Request.Context()).Error("request failed", zap.Error(err))
		failWith(c, http.StatusInternalServerError, "internal server error")
	}
}

// failWith writes a failure envelope with the given status and message.
func failWith(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// badRequest reports a request binding failure.
func badRequest(c *gin.Context, err error) {
	failWith(c, http.StatusBadRequest, "invalid request: "+err.Error())
}
