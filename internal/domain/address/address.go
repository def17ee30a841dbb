// Package address holds user shipping addresses. Orders never reference an
// address row; they copy its fields into an immutable snapshot at placement.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or does not belong
// to the requesting user.
var ErrNotFound = errors.New("address not found")

// Address is a user's saved shipping address.
type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Line      string    `json:"line"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Landmark  string    `json:"landmark,omitempty"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is the denormalized copy stamped onto an order at placement.
// Later edits to the address row never affect it.
type Snapshot struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Line     string `json:"line"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// Snapshot copies the address fields that orders preserve.
func (a *Address) Snapshot() Snapshot {
	return Snapshot{
		Name:     a.Name,
		Phone:    a.Phone,
		Line:     a.Line,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Landmark: a.Landmark,
	}
}

// Repository defines persistence operations for addresses. All lookups are
// scoped to the owning user.
type Repository interface {
	List(ctx context.Context, userID string) ([]Address, error)
	GetByID(ctx context.Context, id, userID string) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id, userID string) error
	// SetDefault marks the address as the user's default and clears the
	// flag on their other addresses.
	SetDefault(ctx context.Context, id, userID string) error
}
