// Package payment defines the gateway interface the order flow depends on.
// Concrete providers live under internal/payment.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotConfirmed is returned by VerifyConfirmation when the gateway does
// not report the payment as captured.
var ErrNotConfirmed = errors.New("payment not confirmed by provider")

// Confirmation is the client-supplied proof of an online payment, echoed
// back from the gateway's browser flow.
type Confirmation struct {
	Handle    string `json:"handle" binding:"required"`
	Reference string `json:"reference"`
	Signature string `json:"signature"`
}

// Provider creates and verifies gateway payment orders. The handle it
// returns is opaque; the order flow stores it and keys verification on it.
type Provider interface {
	// CreateOrder registers an intent to collect amount and returns the
	// gateway handle the client completes the payment against.
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (handle string, err error)
	// VerifyConfirmation checks a client confirmation with the gateway and
	// returns the confirmed handle, or ErrNotConfirmed.
	VerifyConfirmation(ctx context.Context, c Confirmation) (handle string, err error)
}
