package handlers

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification outbox HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// Dispatch handles POST /admin/notifications/dispatch. It delivers one batch
// of pending notifications without waiting for the dispatcher tick.
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if a.Role != models.RoleAdmin {
		respondError(c, services.ErrForbidden)
		return
	}
	sent, failed, err := h.notificationService.DispatchPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent, "failed": failed})
}
