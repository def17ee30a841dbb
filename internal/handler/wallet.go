package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/wallet"
)

type walletResponse struct {
	Balance decimal.Decimal `json:"balance"`
	Entries []wallet.Entry  `json:"entries"`
}

// GetWallet returns the user's balance and paginated entry history, newest
// first. A user without a wallet sees a zero balance.
func (h *Handler) GetWallet(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	balance := decimal.Zero
	w, err := h.wallets.GetByUser(ctx, uid)
	switch {
	case err == nil:
		balance = w.Balance
	case errors.Is(err, wallet.ErrNotFound):
		ok(c, http.StatusOK, walletResponse{Balance: balance, Entries: []wallet.Entry{}})
		return
	default:
		fail(c, err)
		return
	}

	limit, offset := pagination(c)
	entries, err := h.wallets.History(ctx, uid, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, walletResponse{Balance: balance, Entries: entries})
}
