// Command seed-db loads a starter catalog and a pair of coupons into the
// database. Existing rows are left untouched, so the command is safe to run
// repeatedly against the same database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categoryID, err := seedCategories(ctx, postgres.NewCategoryRepository(pool))
	if err != nil {
		return errors.Wrap(err, "seed categories")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile, categoryID); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

// seedCategories creates a small default tree and returns the id of the leaf
// category products are filed under.
func seedCategories(ctx context.Context, categories catalog.CategoryRepository) (string, error) {
	root := &catalog.Category{
		ID:     "cat-appliances",
		Name:   "Appliances",
		Slug:   catalog.Slugify("Appliances"),
		Active: true,
	}
	leaf := &catalog.Category{
		ID:       "cat-kitchen",
		Name:     "Kitchen Appliances",
		Slug:     catalog.Slugify("Kitchen Appliances"),
		ParentID: root.ID,
		Active:   true,
	}

	for _, c := range []*catalog.Category{root, leaf} {
		if _, err := categories.GetByID(ctx, c.ID); err == nil {
			slog.Info("category exists, skipping", slog.String("id", c.ID))
			continue
		} else if !errors.Is(err, catalog.ErrCategoryNotFound) {
			return "", err
		}
		if err := categories.Create(ctx, c); err != nil {
			return "", errors.Wrapf(err, "create category %s", c.ID)
		}
		slog.Info("created category", slog.String("id", c.ID), slog.String("name", c.Name))
	}
	return leaf.ID, nil
}

func seedProducts(ctx context.Context, products catalog.ProductRepository, productsFile, categoryID string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var entries []productJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(entries)))

	for _, e := range entries {
		if _, err := products.GetByID(ctx, e.ID); err == nil {
			slog.Info("product exists, skipping", slog.String("id", e.ID))
			continue
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return err
		}

		cat := e.Category
		if cat == "" {
			cat = categoryID
		}
		if err := products.Create(ctx, &catalog.Product{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Brand:       e.Brand,
			Price:       e.Price,
			Stock:       e.Stock,
			CategoryID:  cat,
			Images:      e.Images,
			Listed:      true,
		}); err != nil {
			return errors.Wrapf(err, "create product %s", e.ID)
		}
		slog.Info("created product", slog.String("id", e.ID), slog.String("name", e.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, coupons coupon.Repository) error {
	slog.Info("seeding default coupons")

	expiry := time.Now().AddDate(1, 0, 0)
	defaults := []coupon.Coupon{
		{
			ID:             "coupon-welcome",
			Code:           "WELCOME10",
			Description:    "10% off your first order",
			DiscountType:   catalog.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(200),
			LimitPerUser:   1,
			ExpiresAt:      &expiry,
		},
		{
			ID:             "coupon-flat50",
			Code:           "FLAT50",
			Description:    "Flat 50 off on orders above 500",
			DiscountType:   catalog.DiscountFixed,
			DiscountValue:  decimal.NewFromInt(50),
			MinOrderAmount: decimal.NewFromInt(500),
		},
	}

	for i := range defaults {
		c := &defaults[i]
		if _, err := coupons.GetByCode(ctx, c.Code); err == nil {
			slog.Info("coupon exists, skipping", slog.String("code", c.Code))
			continue
		} else if !errors.Is(err, coupon.ErrNotFound) {
			return err
		}
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
		if err := coupons.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "create coupon %s", c.Code)
		}
		slog.Info("created coupon", slog.String("code", c.Code))
	}
	return nil
}
