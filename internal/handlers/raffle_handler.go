package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// RaffleHandler handles raffle-related HTTP requests
type RaffleHandler struct {
	raffleService    *services.RaffleService
	inventoryService *services.InventoryService
	drawService      *services.DrawService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffleService *services.RaffleService, inventoryService *services.InventoryService, drawService *services.DrawService) *RaffleHandler {
	return &RaffleHandler{
		raffleService:    raffleService,
		inventoryService: inventoryService,
		drawService:      drawService,
	}
}

// GetRaffle handles GET /raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	ctx := c.Request.Context()
	raffle, err := h.raffleService.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	counts, err := h.inventoryService.Counts(ctx, raffle.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	remaining, err := h.drawService.RemainingPrizes(ctx, raffle.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"raffle":          raffle,
		"counts":          counts,
		"remainingPrizes": remaining,
	})
}

// CreateRaffle handles POST /admin/raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req models.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffle, err := h.raffleService.Create(c.Request.Context(), a, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// UpdateStatus handles PATCH /admin/raffles/:id/status
func (h *RaffleHandler) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req models.UpdateRaffleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raffle, err := h.raffleService.UpdateStatus(c.Request.Context(), a, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// GetStats handles GET /admin/raffles/:id/stats
func (h *RaffleHandler) GetStats(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	stats, err := h.inventoryService.Stats(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
