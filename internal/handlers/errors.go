package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ArowuTest/raffle-backend/internal/middleware"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var (
		shortfall   *services.InsufficientAvailabilityError
		association *services.AssociationFailureError
		ambiguous   *services.AmbiguousDrawError
	)
	switch {
	case errors.As(err, &shortfall):
		c.JSON(http.StatusConflict, gin.H{
			"error":       shortfall.Error(),
			"requested":   shortfall.Requested,
			"missing":     shortfall.Missing,
			"unavailable": shortfall.Unavailable,
		})
	case errors.As(err, &association):
		c.JSON(http.StatusNotFound, gin.H{
			"error":         association.Error(),
			"referenceCode": association.ReferenceCode,
		})
	case errors.As(err, &ambiguous):
		c.JSON(http.StatusConflict, gin.H{
			"error":      ambiguous.Error(),
			"candidates": ambiguous.Candidates,
		})
	case errors.Is(err, services.ErrMissingReferenceCode),
		errors.Is(err, services.ErrInvalidTicketNumber),
		errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrRaffleNotFound),
		errors.Is(err, services.ErrPrizeNotFound),
		errors.Is(err, services.ErrDrawNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRaffleNotOpen),
		errors.Is(err, services.ErrReservationExpired),
		errors.Is(err, services.ErrPrizeAlreadyDrawn),
		errors.Is(err, services.ErrNoEligibleTickets):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTicketNotSold):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrEntitlementExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		slog.Error("Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// actor returns the authenticated staff member or aborts with 401
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return a, ok
}

// pagination reads page and limit query parameters
func pagination(c *gin.Context, defaultLimit int) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}
