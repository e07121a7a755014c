package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// DrawHandler handles draw-related HTTP requests
type DrawHandler struct {
	drawService *services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService *services.DrawService) *DrawHandler {
	return &DrawHandler{drawService: drawService}
}

// GetPublicDraws handles GET /raffles/:id/draws
func (h *DrawHandler) GetPublicDraws(c *gin.Context) {
	draws, err := h.drawService.PublicDraws(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draws": draws})
}

// GetRemainingPrizes handles GET /raffles/:id/prizes/remaining
func (h *DrawHandler) GetRemainingPrizes(c *gin.Context) {
	prizes, err := h.drawService.RemainingPrizes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes})
}

// GetDraws handles GET /admin/raffles/:id/draws
func (h *DrawHandler) GetDraws(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	draws, err := h.drawService.ListDraws(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draws": draws})
}

// GetCandidates handles GET /admin/raffles/:id/draws/candidates?lotteryNumber=&digits=
func (h *DrawHandler) GetCandidates(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	digits, err := strconv.Atoi(c.Query("digits"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "digits must be a number"})
		return
	}
	candidates, err := h.drawService.Candidates(c.Request.Context(), a, c.Param("id"), c.Query("lotteryNumber"), digits)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// ExecuteDraw handles POST /admin/raffles/:id/draws
func (h *DrawHandler) ExecuteDraw(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req models.DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draw, err := h.drawService.SelectWinner(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draw)
}

// DeleteDraw handles DELETE /admin/raffles/:id/draws/:drawId
func (h *DrawHandler) DeleteDraw(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.drawService.DeleteDraw(c.Request.Context(), a, c.Param("id"), c.Param("drawId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnnounceDraw handles POST /admin/raffles/:id/draws/:drawId/announce
func (h *DrawHandler) AnnounceDraw(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	draw, err := h.drawService.Announce(c.Request.Context(), a, c.Param("id"), c.Param("drawId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}
