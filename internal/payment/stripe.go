// Package payment implements the payment gateway on Stripe payment
// intents. Amounts are INR and sent to Stripe in paise.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"

	domain "github.com/karomart/backend/internal/domain/payment"
)

var _ domain.Provider = (*StripeProvider)(nil)

// StripeProvider creates and verifies Stripe payment intents. The intent id
// is the opaque handle stored on orders.
type StripeProvider struct{}

// NewStripeProvider configures the Stripe client with the given secret key.
func NewStripeProvider(apiKey string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{}
}

// CreateOrder registers a payment intent for the given amount and returns
// its id.
func (p *StripeProvider) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(toPaise(amount)),
		Currency: stripe.String(string(stripe.CurrencyINR)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"order_id": receipt},
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", errors.Wrap(err, "creating payment intent")
	}
	return pi.ID, nil
}

// VerifyConfirmation retrieves the intent named by the confirmation and
// accepts it only when Stripe reports the payment captured.
func (p *StripeProvider) VerifyConfirmation(ctx context.Context, c domain.Confirmation) (string, error) {
	pi, err := paymentintent.Get(c.Handle, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", errors.Wrap(err, "retrieving payment intent")
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return "", domain.ErrNotConfirmed
	}
	return pi.ID, nil
}

// toPaise converts a rupee amount to the integer paise Stripe expects.
func toPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
