package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/wallet"
)

const (
	getWalletSQL = `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`

	ensureWalletSQL = `INSERT INTO wallets (id, user_id, balance) VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING`

	creditWalletSQL = `UPDATE wallets SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1 RETURNING id`

	// The balance guard makes the debit conditional; the CHECK constraint
	// backs it up at the schema level.
	debitWalletSQL = `UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2 RETURNING id`

	insertEntrySQL = `INSERT INTO wallet_entries (id, wallet_id, amount, reason, order_id, note)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`

	walletHistorySQL = `SELECT e.id, e.wallet_id, e.amount, e.reason, COALESCE(e.order_id, ''), e.note, e.created_at
		FROM wallet_entries e JOIN wallets w ON w.id = e.wallet_id
		WHERE w.user_id = $1 ORDER BY e.created_at DESC LIMIT $2 OFFSET $3`
)

var _ wallet.Repository = (*WalletRepository)(nil)

// WalletRepository implements wallet.Repository backed by PostgreSQL.
type WalletRepository struct {
	db DBTX
}

// NewWalletRepository returns a WalletRepository over db.
func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByUser returns the user's wallet.
func (r *WalletRepository) GetByUser(ctx context.Context, userID string) (*wallet.Wallet, error) {
	rows, err := r.db.Query(ctx, getWalletSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "getting wallet")
	}
	w, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (wallet.Wallet, error) {
		var w wallet.Wallet
		err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
		return w, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting wallet")
	}
	return &w, nil
}

// Ensure creates the user's wallet with a zero balance if it is missing.
func (r *WalletRepository) Ensure(ctx context.Context, userID string) (*wallet.Wallet, error) {
	if _, err := r.db.Exec(ctx, ensureWalletSQL, uuid.New().String(), userID); err != nil {
		return nil, errors.Wrap(err, "ensuring wallet")
	}
	return r.GetByUser(ctx, userID)
}

// Credit adds amount to the user's balance, creating the wallet when
// missing, and appends a positive entry.
func (r *WalletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason wallet.Reason, orderID string) error {
	if _, err := r.db.Exec(ctx, ensureWalletSQL, uuid.New().String(), userID); err != nil {
		return errors.Wrap(err, "ensuring wallet")
	}

	var walletID string
	if err := r.db.QueryRow(ctx, creditWalletSQL, userID, amount).Scan(&walletID); err != nil {
		return errors.Wrap(err, "crediting wallet")
	}
	return r.appendEntry(ctx, walletID, amount, reason, orderID)
}

// Debit conditionally subtracts amount from the user's balance and appends
// a negative entry. A missing wallet reads the same as an empty one.
func (r *WalletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason wallet.Reason, orderID string) error {
	var walletID string
	err := r.db.QueryRow(ctx, debitWalletSQL, userID, amount).Scan(&walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.ErrInsufficientBalance
	}
	if err != nil {
		return errors.Wrap(err, "debiting wallet")
	}
	return r.appendEntry(ctx, walletID, amount.Neg(), reason, orderID)
}

func (r *WalletRepository) appendEntry(ctx context.Context, walletID string, amount decimal.Decimal, reason wallet.Reason, orderID string) error {
	_, err := r.db.Exec(ctx, insertEntrySQL, uuid.New().String(), walletID, amount, string(reason), orderID, "")
	if err != nil {
		return errors.Wrap(err, "appending wallet entry")
	}
	return nil
}

// History returns the wallet's entries newest first.
func (r *WalletRepository) History(ctx context.Context, userID string, limit, offset int) ([]wallet.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, walletHistorySQL, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "getting wallet history")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (wallet.Entry, error) {
		var (
			e      wallet.Entry
			reason string
		)
		err := row.Scan(&e.ID, &e.WalletID, &e.Amount, &reason, &e.OrderID, &e.Note, &e.CreatedAt)
		e.Reason = wallet.Reason(reason)
		return e, err
	})
}
