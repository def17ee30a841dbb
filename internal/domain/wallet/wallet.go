// Package wallet holds per-user store-credit balances and their append-only
// entry history. Balances never go negative; debits are conditional and fail
// when funds are insufficient.
package wallet

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a wallet does not exist. Reads treat a
	// missing wallet as a zero balance; debits treat it as insufficient funds.
	ErrNotFound = errors.New("wallet not found")
	// ErrInsufficientBalance is returned by a conditional debit when the
	// balance is lower than the requested amount at commit time.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// Reason tags a wallet entry with why the balance moved.
type Reason string

const (
	ReasonOrderPayment       Reason = "order-payment"
	ReasonCancellationRefund Reason = "cancellation-refund"
	ReasonReturnRefund       Reason = "return-refund"
	ReasonReferralReward     Reason = "referral-reward"
	ReasonOther              Reason = "other"
)

// Wallet is a user's store-credit balance. One exists per user, created
// lazily on first credit.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Entry is one signed balance movement: positive for credits, negative for
// debits. Entries are append-only.
type Entry struct {
	ID        string          `json:"id"`
	WalletID  string          `json:"walletId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    Reason          `json:"reason"`
	OrderID   string          `json:"orderId,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Repository defines persistence operations for wallets. Credit and Debit
// update the balance and append the matching history entry together.
type Repository interface {
	// GetByUser returns the user's wallet, or ErrNotFound if none exists yet.
	GetByUser(ctx context.Context, userID string) (*Wallet, error)
	// Ensure creates the user's wallet with a zero balance if it is missing
	// and returns it.
	Ensure(ctx context.Context, userID string) (*Wallet, error)

	// Credit adds amount to the user's balance, creating the wallet when
	// missing, and appends a positive entry.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, reason Reason, orderID string) error
	// Debit subtracts amount from the user's balance and appends a negative
	// entry. It fails with ErrInsufficientBalance when the balance is lower
	// than amount, or when the wallet does not exist.
	Debit(ctx context.Context, userID string, amount decimal.Decimal, reason Reason, orderID string) error

	// History returns the wallet's entries newest first.
	History(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
}
