package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/karomart/backend/internal/domain/wallet"
)

// Cancel cancels one of the user's orders. Cancellation is only allowed
// before completion; a paid order is refunded into the user's wallet in the
// same transaction and its payment status moves to refunded.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	var cancelled *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotFound
		}
		if o.Status.Terminal() || o.Status == StatusCompleted || o.Status == StatusRequestingReturn {
			return ErrInvalidTransition
		}

		now := s.now()
		o.Status = StatusCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now
		if o.PaymentStatus == PaymentPaid {
			if err := tx.Wallets().Credit(ctx, userID, o.TotalPrice(), wallet.ReasonCancellationRefund, o.ID); err != nil {
				return errors.Wrap(err, "refund wallet")
			}
			o.PaymentStatus = PaymentRefunded
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// RequestReturn moves one of the user's orders into requesting-return.
// Payment status is untouched until an admin decides the request.
func (s *Service) RequestReturn(ctx context.Context, orderID, userID string) (*Order, error) {
	repos := s.store.Repos()
	o, err := repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPending && o.Status != StatusCompleted {
		return nil, ErrInvalidTransition
	}

	o.Status = StatusRequestingReturn
	o.UpdatedAt = s.now()
	if err := repos.Orders().Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// ApproveReturn accepts a pending return request: the order becomes
// returned and its total is credited to the owner's wallet.
func (s *Service) ApproveReturn(ctx context.Context, orderID string) (*Order, error) {
	var approved *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusRequestingReturn {
			return ErrInvalidTransition
		}

		if err := tx.Wallets().Credit(ctx, o.UserID, o.TotalPrice(), wallet.ReasonReturnRefund, o.ID); err != nil {
			return errors.Wrap(err, "refund wallet")
		}
		o.Status = StatusReturned
		o.PaymentStatus = PaymentRefunded
		o.UpdatedAt = s.now()
		if err := tx.Orders().Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		approved = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// RejectReturn denies a pending return request and reverts the order to
// completed.
func (s *Service) RejectReturn(ctx context.Context, orderID string) (*Order, error) {
	repos := s.store.Repos()
	o, err := repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusRequestingReturn {
		return nil, ErrInvalidTransition
	}

	o.Status = StatusCompleted
	o.UpdatedAt = s.now()
	if err := repos.Orders().Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// SetStatus is the admin status override. It cannot touch terminal orders
// and is blocked while a return request awaits a decision; moving to
// completed stamps completedAt.
func (s *Service) SetStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	repos := s.store.Repos()
	o, err := repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusRequestingReturn {
		return nil, ErrReturnPending
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	o.Status = status
	o.UpdatedAt = now
	if status == StatusCompleted && o.CompletedAt == nil {
		o.CompletedAt = &now
	}
	if err := repos.Orders().Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// RetryPayment regenerates the gateway handle for an unpaid non-cash
// order, replacing the prior one.
func (s *Service) RetryPayment(ctx context.Context, orderID, userID string) (*Order, error) {
	repos := s.store.Repos()
	o, err := repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Method == MethodCash || o.PaymentStatus == PaymentPaid {
		return nil, ErrPaymentNotRetryable
	}

	handle, err := s.provider.CreateOrder(ctx, o.TotalPrice(), o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "create payment order")
	}
	o.PaymentHandle = handle
	o.UpdatedAt = s.now()
	if err := repos.Orders().Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}
