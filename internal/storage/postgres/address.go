package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/karomart/backend/internal/domain/address"
)

const addressColumns = `id, user_id, name, phone, line, city, state, pincode, landmark,
	is_default, created_at, updated_at`

const (
	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	db DBTX
}

// NewAddressRepository returns an AddressRepository over db.
func NewAddressRepository(db DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

// List returns the user's addresses, default first.
func (r *AddressRepository) List(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.db.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing addresses")
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetByID returns the address only when it belongs to the given user.
func (r *AddressRepository) GetByID(ctx context.Context, id, userID string) (*address.Address, error) {
	rows, err := r.db.Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "getting address %q", id)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting address %q", id)
	}
	return &a, nil
}

// Create inserts a new address.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	_, err := r.db.Exec(ctx, `INSERT INTO addresses
		(id, user_id, name, phone, line, city, state, pincode, landmark, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.Name, a.Phone, a.Line, a.City, a.State, a.Pincode, a.Landmark, a.Default,
	)
	if err != nil {
		return errors.Wrapf(err, "creating address %q", a.ID)
	}
	return nil
}

// Update rewrites the address fields, scoped to the owning user.
func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	tag, err := r.db.Exec(ctx, `UPDATE addresses
		SET name = $3, phone = $4, line = $5, city = $6, state = $7,
		    pincode = $8, landmark = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2`,
		a.ID, a.UserID, a.Name, a.Phone, a.Line, a.City, a.State, a.Pincode, a.Landmark,
	)
	if err != nil {
		return errors.Wrapf(err, "updating address %q", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

// Delete removes the address. Orders keep their snapshots.
func (r *AddressRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrapf(err, "deleting address %q", id)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

// SetDefault marks the address as the user's default and clears the flag on
// their other addresses.
func (r *AddressRepository) SetDefault(ctx context.Context, id, userID string) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = now() WHERE user_id = $1 AND is_default`, userID); err != nil {
		return errors.Wrap(err, "clearing default address")
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE addresses SET is_default = TRUE, updated_at = now() WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrapf(err, "setting default address %q", id)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Phone, &a.Line, &a.City, &a.State,
		&a.Pincode, &a.Landmark, &a.Default, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
