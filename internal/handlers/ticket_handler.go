package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

const defaultTicketPageSize = 100

// ReserveRequest is the body of POST /raffles/:id/reservations
type ReserveRequest struct {
	Numbers    []string         `json:"numbers" binding:"required,min=1"`
	Buyer      models.BuyerInfo `json:"buyer" binding:"required"`
	TTLMinutes int              `json:"ttlMinutes" binding:"min=0"`
}

// QuickPickRequest is the body of POST /raffles/:id/reservations/quick-pick
type QuickPickRequest struct {
	Count   int              `json:"count" binding:"required,min=1"`
	Exclude []string         `json:"exclude"`
	Buyer   models.BuyerInfo `json:"buyer" binding:"required"`
}

// TicketHandler handles ticket inventory and reservation HTTP requests
type TicketHandler struct {
	inventoryService   *services.InventoryService
	samplerService     *services.SamplerService
	reservationService *services.ReservationService
	reclaimer          *services.Reclaimer
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(
	inventoryService *services.InventoryService,
	samplerService *services.SamplerService,
	reservationService *services.ReservationService,
	reclaimer *services.Reclaimer,
) *TicketHandler {
	return &TicketHandler{
		inventoryService:   inventoryService,
		samplerService:     samplerService,
		reservationService: reservationService,
		reclaimer:          reclaimer,
	}
}

// ListTickets handles GET /raffles/:id/tickets
func (h *TicketHandler) ListTickets(c *gin.Context) {
	var filter models.TicketFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, limit := pagination(c, defaultTicketPageSize)
	result, err := h.inventoryService.ListPage(c.Request.Context(), c.Param("id"), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTicket handles GET /raffles/:id/tickets/:number
func (h *TicketHandler) GetTicket(c *gin.Context) {
	view, err := h.inventoryService.Status(c.Request.Context(), c.Param("id"), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SampleTickets handles GET /raffles/:id/tickets/sample?count=&exclude=
func (h *TicketHandler) SampleTickets(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a number"})
		return
	}
	var exclude []string
	for _, v := range c.QueryArray("exclude") {
		exclude = append(exclude, strings.Split(v, ",")...)
	}
	numbers, err := h.samplerService.SampleAvailable(c.Request.Context(), c.Param("id"), count, exclude)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

// Reserve handles POST /raffles/:id/reservations
func (h *TicketHandler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservation, err := h.reservationService.Reserve(c.Request.Context(), c.Param("id"), req.Numbers, req.Buyer, req.TTLMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// QuickPick handles POST /raffles/:id/reservations/quick-pick
func (h *TicketHandler) QuickPick(c *gin.Context) {
	var req QuickPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservation, err := h.reservationService.QuickPick(c.Request.Context(), c.Param("id"), req.Count, req.Exclude, req.Buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// ReclaimExpired handles POST /admin/maintenance/reclaim
func (h *TicketHandler) ReclaimExpired(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if a.Role != models.RoleAdmin {
		respondError(c, services.ErrForbidden)
		return
	}
	n, err := h.reclaimer.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reclaimed": n})
}
