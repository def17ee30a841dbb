package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

const productColumns = `p.id, p.name, p.description, p.brand, p.price, p.stock, p.category_id,
	p.images, p.listed, p.deleted,
	p.discount_name, p.discount_type, p.discount_value, p.discount_start, p.discount_end,
	p.created_at, p.updated_at,
	c.id, c.name, c.slug,
	c.discount_name, c.discount_type, c.discount_value, c.discount_start, c.discount_end`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id AND NOT c.deleted`

const (
	getProductByIDSQL   = `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`
	getProductsByIDsSQL = `SELECT ` + productColumns + productFrom + ` WHERE p.id = ANY($1)`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	applyProductOfferSQL = `UPDATE products
		SET discount_name = $2, discount_type = $3, discount_value = $4,
		    discount_start = $5, discount_end = $6, updated_at = now()
		WHERE id = ANY($1) AND NOT deleted`

	listActiveProductOffersSQL = `SELECT ` + productColumns + productFrom + `
		WHERE NOT p.deleted AND p.discount_start <= $1 AND p.discount_end > $1
		ORDER BY p.discount_end`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by
// PostgreSQL. Reads join the category row so final prices can be resolved
// without extra round trips.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository over db.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns products matching the filter, ordered by creation time.
func (r *ProductRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	sql := `SELECT ` + productColumns + productFrom + ` WHERE TRUE`
	args := make([]any, 0, 1)
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		sql += ` AND p.category_id = $1`
	}
	if filter.ListedOnly {
		sql += ` AND p.listed`
	}
	if !filter.IncludeDeleted {
		sql += ` AND NOT p.deleted`
	}
	sql += ` ORDER BY p.created_at DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	name, typ, value, start, end := discountFields(p.Discount)
	_, err := r.db.Exec(ctx, `INSERT INTO products
		(id, name, description, brand, price, stock, category_id, images, listed, deleted,
		 discount_name, discount_type, discount_value, discount_start, discount_end)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, FALSE, $10, $11, $12, $13, $14)`,
		p.ID, p.Name, p.Description, p.Brand, p.Price, p.Stock, p.CategoryID, p.Images, p.Listed,
		name, typ, value, start, end,
	)
	if err != nil {
		return errors.Wrapf(err, "creating product %q", p.ID)
	}
	return nil
}

// Update rewrites the product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	name, typ, value, start, end := discountFields(p.Discount)
	tag, err := r.db.Exec(ctx, `UPDATE products
		SET name = $2, description = $3, brand = $4, price = $5, stock = $6,
		    category_id = NULLIF($7, ''), images = $8, listed = $9,
		    discount_name = $10, discount_type = $11, discount_value = $12,
		    discount_start = $13, discount_end = $14, updated_at = now()
		WHERE id = $1 AND NOT deleted`,
		p.ID, p.Name, p.Description, p.Brand, p.Price, p.Stock, p.CategoryID, p.Images, p.Listed,
		name, typ, value, start, end,
	)
	if err != nil {
		return errors.Wrapf(err, "updating product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetListed toggles the storefront visibility flag.
func (r *ProductRepository) SetListed(ctx context.Context, id string, listed bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET listed = $2, updated_at = now() WHERE id = $1 AND NOT deleted`,
		id, listed,
	)
	if err != nil {
		return errors.Wrapf(err, "setting listed for product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SoftDelete marks the product deleted; the row stays for order history.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET deleted = TRUE, listed = FALSE, updated_at = now() WHERE id = $1 AND NOT deleted`,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "deleting product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DecrementStock conditionally subtracts qty from the product's stock. The
// WHERE guard makes the decrement atomic; zero rows affected means another
// transaction depleted the stock first.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	tag, err := r.db.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return errors.Wrapf(err, "decrementing stock for product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

// ApplyOffer stamps the discount onto every product in ids.
func (r *ProductRepository) ApplyOffer(ctx context.Context, ids []string, d catalog.Discount) (int, error) {
	tag, err := r.db.Exec(ctx, applyProductOfferSQL, ids, d.Name, string(d.Type), d.Value, d.Start, d.End)
	if err != nil {
		return 0, errors.Wrap(err, "applying product offer")
	}
	return int(tag.RowsAffected()), nil
}

// ListActiveOffers returns products whose discount window covers now.
func (r *ProductRepository) ListActiveOffers(ctx context.Context, now time.Time) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, listActiveProductOffersSQL, now)
	if err != nil {
		return nil, errors.Wrap(err, "listing active offers")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p          catalog.Product
		categoryID *string

		dName  *string
		dType  *string
		dValue *decimal.Decimal
		dStart *time.Time
		dEnd   *time.Time

		cID    *string
		cName  *string
		cSlug  *string
		cdName *string
		cdType *string
		cdVal  *decimal.Decimal
		cdFrom *time.Time
		cdTo   *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Brand, &p.Price, &p.Stock, &categoryID,
		&p.Images, &p.Listed, &p.Deleted,
		&dName, &dType, &dValue, &dStart, &dEnd,
		&p.CreatedAt, &p.UpdatedAt,
		&cID, &cName, &cSlug,
		&cdName, &cdType, &cdVal, &cdFrom, &cdTo,
	)
	if err != nil {
		return p, err
	}

	if categoryID != nil {
		p.CategoryID = *categoryID
	}
	p.Discount = buildDiscount(dName, dType, dValue, dStart, dEnd)
	if cID != nil {
		p.Category = &catalog.Category{
			ID:       *cID,
			Name:     *cName,
			Slug:     *cSlug,
			Discount: buildDiscount(cdName, cdType, cdVal, cdFrom, cdTo),
		}
	}
	return p, nil
}

// buildDiscount assembles a Discount from nullable columns, or nil when the
// row carries no discount.
func buildDiscount(name, typ *string, value *decimal.Decimal, start, end *time.Time) *catalog.Discount {
	if typ == nil || value == nil {
		return nil
	}
	d := &catalog.Discount{Type: catalog.DiscountType(*typ), Value: *value, Start: start, End: end}
	if name != nil {
		d.Name = *name
	}
	return d
}

// discountFields flattens an optional Discount into nullable columns.
func discountFields(d *catalog.Discount) (name, typ *string, value *decimal.Decimal, start, end *time.Time) {
	if d == nil {
		return nil, nil, nil, nil, nil
	}
	t := string(d.Type)
	return &d.Name, &t, &d.Value, d.Start, d.End
}
