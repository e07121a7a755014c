package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

const defaultOrderPageSize = 20

// ProofRequest is the body of POST /raffles/:id/orders/:reference/proof.
// The reference comes from the path; the email is an optional second check.
type ProofRequest struct {
	ProofURL string `json:"proofUrl" binding:"required"`
	Email    string `json:"email"`
}

// RejectRequest carries the reason shown to the buyer
type RejectRequest struct {
	Reason string `json:"reason"`
}

// BulkRequest approves or rejects several orders at once
type BulkRequest struct {
	References []string `json:"references" binding:"required,min=1"`
	Reason     string   `json:"reason"`
}

// OrderHandler handles order, payment proof and approval HTTP requests
type OrderHandler struct {
	orderService    *services.OrderService
	proofService    *services.ProofService
	approvalService *services.ApprovalService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *services.OrderService, proofService *services.ProofService, approvalService *services.ApprovalService) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		proofService:    proofService,
		approvalService: approvalService,
	}
}

// GetOrder handles GET /raffles/:id/orders/:reference
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Lookup(c.Request.Context(), c.Param("id"), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// SubmitProof handles POST /raffles/:id/orders/:reference/proof
func (h *OrderHandler) SubmitProof(c *gin.Context) {
	var req ProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.proofService.SubmitProof(c.Request.Context(), c.Param("id"), c.Param("reference"), req.ProofURL, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"referenceCode": services.NormalizeReference(c.Param("reference")),
		"updated":       updated,
	})
}

// ListOrders handles GET /admin/raffles/:id/orders?status=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, limit := pagination(c, defaultOrderPageSize)
	status := models.OrderStatus(c.Query("status"))
	orders, err := h.orderService.List(c.Request.Context(), a, c.Param("id"), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "page": page, "limit": limit})
}

// ApproveOrder handles POST /admin/raffles/:id/orders/:reference/approve
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	result, err := h.approvalService.Approve(c.Request.Context(), a, c.Param("id"), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RejectOrder handles POST /admin/raffles/:id/orders/:reference/reject
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.approvalService.Reject(c.Request.Context(), a, c.Param("id"), c.Param("reference"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApproveOrders handles POST /admin/raffles/:id/orders/approve
func (h *OrderHandler) ApproveOrders(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.approvalService.ApproveMany(c.Request.Context(), a, c.Param("id"), req.References)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// RejectOrders handles POST /admin/raffles/:id/orders/reject
func (h *OrderHandler) RejectOrders(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := h.approvalService.RejectMany(c.Request.Context(), a, c.Param("id"), req.References, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
