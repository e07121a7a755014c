package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// SystemSettingsHandler handles system settings-related HTTP requests
type SystemSettingsHandler struct {
	settingsService *services.SystemSettingsService
}

// NewSystemSettingsHandler creates a new SystemSettingsHandler
func NewSystemSettingsHandler(settingsService *services.SystemSettingsService) *SystemSettingsHandler {
	return &SystemSettingsHandler{settingsService: settingsService}
}

// GetSettings handles GET /admin/settings
func (h *SystemSettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settings":          settings,
		"availableGateways": h.settingsService.AvailableGateways(),
	})
}

// UpdateNotificationGateway handles PUT /admin/settings/notification-gateway
func (h *SystemSettingsHandler) UpdateNotificationGateway(c *gin.Context) {
	var request struct {
		Gateway string `json:"gateway" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	settings, err := h.settingsService.UpdateNotificationGateway(c.Request.Context(), a, request.Gateway)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
