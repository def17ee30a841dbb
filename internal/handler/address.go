package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/karomart/backend/internal/domain/address"
)

type addressRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Line     string `json:"line" binding:"required"`
	City     string `json:"city" binding:"required"`
	State    string `json:"state" binding:"required"`
	Pincode  string `json:"pincode" binding:"required"`
	Landmark string `json:"landmark"`
	Default  bool   `json:"default"`
}

// ListAddresses returns the user's saved addresses.
func (h *Handler) ListAddresses(c *gin.Context) {
	addresses, err := h.addresses.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, addresses)
}

// CreateAddress saves a new address for the user.
func (h *Handler) CreateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a := &address.Address{
		ID:       uuid.New().String(),
		UserID:   userID(c),
		Name:     req.Name,
		Phone:    req.Phone,
		Line:     req.Line,
		City:     req.City,
		State:    req.State,
		Pincode:  req.Pincode,
		Landmark: req.Landmark,
		Default:  req.Default,
	}
	if err := h.addresses.Create(c.Request.Context(), a); err != nil {
		fail(c, err)
		return
	}
	if a.Default {
		if err := h.addresses.SetDefault(c.Request.Context(), a.ID, a.UserID); err != nil {
			fail(c, err)
			return
		}
	}
	ok(c, http.StatusCreated, a)
}

// UpdateAddress edits one of the user's addresses. Orders that already
// snapshotted it are unaffected.
func (h *Handler) UpdateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a, err := h.addresses.GetByID(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	a.Name = req.Name
	a.Phone = req.Phone
	a.Line = req.Line
	a.City = req.City
	a.State = req.State
	a.Pincode = req.Pincode
	a.Landmark = req.Landmark
	if err := h.addresses.Update(c.Request.Context(), a); err != nil {
		fail(c, err)
		return
	}
	if req.Default && !a.Default {
		if err := h.addresses.SetDefault(c.Request.Context(), a.ID, a.UserID); err != nil {
			fail(c, err)
			return
		}
		a.Default = true
	}
	ok(c, http.StatusOK, a)
}

// DeleteAddress removes one of the user's addresses.
func (h *Handler) DeleteAddress(c *gin.Context) {
	if err := h.addresses.Delete(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "address deleted")
}

// SetDefaultAddress marks an address as the user's default.
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	if err := h.addresses.SetDefault(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "default address updated")
}
