package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

// productResponse is the storefront view of a product with its resolved
// price at request time.
type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Price       decimal.Decimal `json:"price"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
	Discount    *discountView   `json:"discount,omitempty"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Category    *categoryView   `json:"category,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Listed      bool            `json:"listed"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type discountView struct {
	Name   string          `json:"name,omitempty"`
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
}

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) productView(p *catalog.Product, now time.Time) productResponse {
	var categoryDiscount *catalog.Discount
	if p.Category != nil {
		categoryDiscount = p.Category.Discount
	}
	resolved := catalog.ResolveDiscount(p.Price, p.Discount, categoryDiscount, now)

	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Price:       p.Price,
		FinalPrice:  resolved.FinalPrice,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		Listed:      p.Listed,
		CreatedAt:   p.CreatedAt,
	}
	if resolved.Source != catalog.SourceNone {
		resp.Discount = &discountView{
			Name:   resolved.Name,
			Source: string(resolved.Source),
			Amount: resolved.Amount,
		}
	}
	if p.Category != nil {
		resp.Category = &categoryView{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, h.imageURL(img))
	}
	return resp
}

// ListProducts returns listed products, optionally filtered by category.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context(), catalog.ProductFilter{
		CategoryID: c.Query("category"),
		ListedOnly: true,
	})
	if err != nil {
		fail(c, err)
		return
	}

	now := time.Now()
	views := make([]productResponse, 0, len(products))
	for i := range products {
		views = append(views, h.productView(&products[i], now))
	}
	ok(c, http.StatusOK, views)
}

// GetProduct returns one product by id.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !p.Available() {
		fail(c, catalog.ErrNotFound)
		return
	}
	ok(c, http.StatusOK, h.productView(p, time.Now()))
}

// ListCategories returns the active category tree.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, categories)
}

// GetCategory returns one category with its parent chain resolved.
func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.categories.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

// ---- admin ----

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0"`
	CategoryID  string          `json:"categoryId"`
	Images      []string        `json:"images"`
	Listed      *bool           `json:"listed"`
}

// AdminListProducts returns all products, including unlisted and deleted.
func (h *Handler) AdminListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context(), catalog.ProductFilter{
		CategoryID:     c.Query("category"),
		IncludeDeleted: c.Query("includeDeleted") == "true",
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, products)
}

// AdminCreateProduct registers a new product.
func (h *Handler) AdminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listed := true
	if req.Listed != nil {
		listed = *req.Listed
	}
	p := &catalog.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		Listed:      listed,
	}
	if err := h.products.Create(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// AdminUpdateProduct edits a product in place. Carts holding the old price
// snapshot will fail checkout validation until refreshed.
func (h *Handler) AdminUpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Brand = req.Brand
	p.Price = req.Price
	p.Stock = req.Stock
	p.CategoryID = req.CategoryID
	p.Images = req.Images
	if req.Listed != nil {
		p.Listed = *req.Listed
	}
	if err := h.products.Update(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// AdminSetProductListed toggles storefront visibility.
func (h *Handler) AdminSetProductListed(c *gin.Context) {
	var req struct {
		Listed *bool `json:"listed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.products.SetListed(c.Request.Context(), c.Param("id"), *req.Listed); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "product updated")
}

// AdminDeleteProduct soft-deletes a product.
func (h *Handler) AdminDeleteProduct(c *gin.Context) {
	if err := h.products.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "product deleted")
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parentId"`
	Image       string `json:"image"`
	Active      *bool  `json:"active"`
}

// AdminListCategories returns all categories, including deleted ones.
func (h *Handler) AdminListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, categories)
}

// AdminCreateCategory registers a new category. The slug derives from the
// name.
func (h *Handler) AdminCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	cat := &catalog.Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Slug:        catalog.Slugify(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
		Image:       req.Image,
		Active:      active,
	}
	if err := h.categories.Create(c.Request.Context(), cat); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, cat)
}

// AdminUpdateCategory edits a category; the slug follows the new name.
func (h *Handler) AdminUpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cat, err := h.categories.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	cat.Name = req.Name
	cat.Slug = catalog.Slugify(req.Name)
	cat.Description = req.Description
	cat.ParentID = req.ParentID
	cat.Image = req.Image
	if req.Active != nil {
		cat.Active = *req.Active
	}
	if err := h.categories.Update(c.Request.Context(), cat); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

// AdminDeleteCategory soft-deletes a category. Its discount stops applying
// to member products immediately.
func (h *Handler) AdminDeleteCategory(c *gin.Context) {
	if err := h.categories.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "category deleted")
}
