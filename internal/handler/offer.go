package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/karomart/backend/internal/domain/catalog"
)

type offerRequest struct {
	IDs   []string             `json:"ids" binding:"required,min=1"`
	Name  string               `json:"name" binding:"required"`
	Type  catalog.DiscountType `json:"type" binding:"required,oneof=percentage fixed"`
	Value decimal.Decimal      `json:"value" binding:"required"`
	Start time.Time            `json:"startDate" binding:"required"`
	End   time.Time            `json:"endDate" binding:"required,gtfield=Start"`
}

func (r *offerRequest) discount() catalog.Discount {
	return catalog.Discount{
		Name:  r.Name,
		Type:  r.Type,
		Value: r.Value,
		Start: &r.Start,
		End:   &r.End,
	}
}

// AdminApplyProductOffer stamps a discount window onto a set of products.
func (h *Handler) AdminApplyProductOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.products.ApplyOffer(c.Request.Context(), req.IDs, req.discount())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": updated})
}

// AdminApplyCategoryOffer stamps a discount window onto a set of categories.
func (h *Handler) AdminApplyCategoryOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.categories.ApplyOffer(c.Request.Context(), req.IDs, req.discount())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": updated})
}

// AdminListOffers returns the products and categories whose discount window
// covers the current time.
func (h *Handler) AdminListOffers(c *gin.Context) {
	now := time.Now()
	products, err := h.products.ListActiveOffers(c.Request.Context(), now)
	if err != nil {
		fail(c, err)
		return
	}
	categories, err := h.categories.ListActiveOffers(c.Request.Context(), now)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"products": products, "categories": categories})
}
