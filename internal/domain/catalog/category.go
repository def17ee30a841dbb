package catalog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrCategoryNotFound is returned when a requested category does not exist.
var ErrCategoryNotFound = errors.New("category not found")

// maxParentDepth caps how far up the parent chain reads resolve.
// Trees are conventionally shallow; the cap guards against cycles
// introduced by bad data.
const maxParentDepth = 5

// Category groups products and may carry its own discount window, which
// competes with per-product discounts when resolving final prices.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	Parent      *Category `json:"parent,omitempty"`
	Image       string    `json:"image,omitempty"`
	Active      bool      `json:"active"`
	Deleted     bool      `json:"deleted"`
	Discount    *Discount `json:"discount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Slugify derives a URL slug from a category name: lowercased, punctuation
// stripped, runs of whitespace/underscores/hyphens collapsed to a single
// hyphen, leading and trailing hyphens trimmed.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CategoryRepository defines persistence operations for the category tree.
type CategoryRepository interface {
	List(ctx context.Context, includeDeleted bool) ([]Category, error)
	// GetByID returns the category with its parent chain resolved up to a
	// fixed depth.
	GetByID(ctx context.Context, id string) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	SoftDelete(ctx context.Context, id string) error

	// ApplyOffer stamps the discount onto every category in ids and
	// returns the number of categories updated.
	ApplyOffer(ctx context.Context, ids []string, d Discount) (int, error)
	// ListActiveOffers returns categories whose discount window covers now.
	ListActiveOffers(ctx context.Context, now time.Time) ([]Category, error)
}
