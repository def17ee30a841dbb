// Package handler exposes the HTTP API over gin. Handlers bind and validate
// requests, delegate to the domain services, and classify domain errors into
// the JSON response envelope {success, message, data, errors}.
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/karomart/backend/internal/domain/address"
	"github.com/karomart/backend/internal/domain/cart"
	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/coupon"
	"github.com/karomart/backend/internal/domain/order"
	"github.com/karomart/backend/internal/domain/wallet"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// JWTSecret signs and verifies bearer tokens.
	JWTSecret []byte
}

// Handler carries the domain dependencies shared by all route handlers.
type Handler struct {
	cfg Config

	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	cartSvc    *cart.Service
	carts      cart.Repository
	coupons    *coupon.Service
	orders     *order.Service
	wallets    wallet.Repository
	addresses  address.Repository
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	cartSvc *cart.Service,
	carts cart.Repository,
	coupons *coupon.Service,
	orders *order.Service,
	wallets wallet.Repository,
	addresses address.Repository,
) *Handler {
	return &Handler{
		cfg:        cfg,
		products:   products,
		categories: categories,
		cartSvc:    cartSvc,
		carts:      carts,
		coupons:    coupons,
		orders:     orders,
		wallets:    wallets,
		addresses:  addresses,
	}
}

// ok writes a success envelope with the given payload.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// okMessage writes a success envelope with a message and no payload.
func okMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// imageURL resolves a stored image path against the configured base URL.
// Absolute URLs pass through untouched.
func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
