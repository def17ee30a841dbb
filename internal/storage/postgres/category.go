package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

const categoryColumns = `id, name, slug, description, parent_id, image, active, deleted,
	discount_name, discount_type, discount_value, discount_start, discount_end,
	created_at, updated_at`

const (
	getCategoryByIDSQL   = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	getCategoryBySlugSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1 AND NOT deleted`

	applyCategoryOfferSQL = `UPDATE categories
		SET discount_name = $2, discount_type = $3, discount_value = $4,
		    discount_start = $5, discount_end = $6, updated_at = now()
		WHERE id = ANY($1) AND NOT deleted`

	listActiveCategoryOffersSQL = `SELECT ` + categoryColumns + ` FROM categories
		WHERE NOT deleted AND discount_start <= $1 AND discount_end > $1
		ORDER BY discount_end`
)

// parentChainDepth caps how far up the tree GetByID resolves. Trees are
// conventionally shallow; the cap guards against cycles from bad data.
const parentChainDepth = 5

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements catalog.CategoryRepository backed by
// PostgreSQL.
type CategoryRepository struct {
	db DBTX
}

// NewCategoryRepository returns a CategoryRepository over db.
func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context, includeDeleted bool) ([]catalog.Category, error) {
	sql := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeDeleted {
		sql += ` WHERE NOT deleted`
	}
	sql += ` ORDER BY name`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByID returns the category with its parent chain resolved.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*catalog.Category, error) {
	c, err := r.get(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, err
	}
	if err := r.resolveParents(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetBySlug returns the category addressed by its URL slug, with its parent
// chain resolved.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	c, err := r.get(ctx, getCategoryBySlugSQL, slug)
	if err != nil {
		return nil, err
	}
	if err := r.resolveParents(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepository) get(ctx context.Context, sql, arg string) (*catalog.Category, error) {
	rows, err := r.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "getting category %q", arg)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, errors.Wrapf(err, "getting category %q", arg)
	}
	return &c, nil
}

func (r *CategoryRepository) resolveParents(ctx context.Context, c *catalog.Category) error {
	cur := c
	for depth := 0; cur.ParentID != "" && depth < parentChainDepth; depth++ {
		parent, err := r.get(ctx, getCategoryByIDSQL, cur.ParentID)
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			break
		}
		if err != nil {
			return err
		}
		cur.Parent = parent
		cur = parent
	}
	return nil
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	name, typ, value, start, end := discountFields(c.Discount)
	_, err := r.db.Exec(ctx, `INSERT INTO categories
		(id, name, slug, description, parent_id, image, active, deleted,
		 discount_name, discount_type, discount_value, discount_start, discount_end)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, FALSE, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Image, c.Active,
		name, typ, value, start, end,
	)
	if err != nil {
		return errors.Wrapf(err, "creating category %q", c.ID)
	}
	return nil
}

// Update rewrites the category's mutable fields.
func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	name, typ, value, start, end := discountFields(c.Discount)
	tag, err := r.db.Exec(ctx, `UPDATE categories
		SET name = $2, slug = $3, description = $4, parent_id = NULLIF($5, ''),
		    image = $6, active = $7,
		    discount_name = $8, discount_type = $9, discount_value = $10,
		    discount_start = $11, discount_end = $12, updated_at = now()
		WHERE id = $1 AND NOT deleted`,
		c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Image, c.Active,
		name, typ, value, start, end,
	)
	if err != nil {
		return errors.Wrapf(err, "updating category %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// SoftDelete marks the category deleted.
func (r *CategoryRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET deleted = TRUE, active = FALSE, updated_at = now() WHERE id = $1 AND NOT deleted`,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "deleting category %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// ApplyOffer stamps the discount onto every category in ids.
func (r *CategoryRepository) ApplyOffer(ctx context.Context, ids []string, d catalog.Discount) (int, error) {
	tag, err := r.db.Exec(ctx, applyCategoryOfferSQL, ids, d.Name, string(d.Type), d.Value, d.Start, d.End)
	if err != nil {
		return 0, errors.Wrap(err, "applying category offer")
	}
	return int(tag.RowsAffected()), nil
}

// ListActiveOffers returns categories whose discount window covers now.
func (r *CategoryRepository) ListActiveOffers(ctx context.Context, now time.Time) ([]catalog.Category, error) {
	rows, err := r.db.Query(ctx, listActiveCategoryOffersSQL, now)
	if err != nil {
		return nil, errors.Wrap(err, "listing active category offers")
	}
	return pgx.CollectRows(rows, scanCategory)
}

func scanCategory(row pgx.CollectableRow) (catalog.Category, error) {
	var (
		c        catalog.Category
		parentID *string

		dName  *string
		dType  *string
		dValue *decimal.Decimal
		dStart *time.Time
		dEnd   *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &parentID, &c.Image, &c.Active, &c.Deleted,
		&dName, &dType, &dValue, &dStart, &dEnd,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if parentID != nil {
		c.ParentID = *parentID
	}
	c.Discount = buildDiscount(dName, dType, dValue, dStart, dEnd)
	return c, nil
}
