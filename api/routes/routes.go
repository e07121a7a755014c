package routes

import (
	"net/http"

	"github.com/ArowuTest/raffle-backend/internal/handlers"
	"github.com/ArowuTest/raffle-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler the router serves
type Handlers struct {
	Auth         *handlers.AuthHandler
	Raffle       *handlers.RaffleHandler
	Ticket       *handlers.TicketHandler
	Order        *handlers.OrderHandler
	Draw         *handlers.DrawHandler
	Settings     *handlers.SystemSettingsHandler
	Notification *handlers.NotificationHandler
}

// SetupRouter sets up the router
func SetupRouter(h Handlers, tokens middleware.TokenParser, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(allowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
		}

		raffles := public.Group("/raffles/:id")
		{
			raffles.GET("", h.Raffle.GetRaffle)
			raffles.GET("/tickets", h.Ticket.ListTickets)
			raffles.GET("/tickets/sample", h.Ticket.SampleTickets)
			raffles.GET("/tickets/:number", h.Ticket.GetTicket)
			raffles.POST("/reservations", h.Ticket.Reserve)
			raffles.POST("/reservations/quick-pick", h.Ticket.QuickPick)
			raffles.GET("/orders/:reference", h.Order.GetOrder)
			raffles.POST("/orders/:reference/proof", h.Order.SubmitProof)
			raffles.GET("/draws", h.Draw.GetPublicDraws)
			raffles.GET("/prizes/remaining", h.Draw.GetRemainingPrizes)
		}
	}

	// Protected routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(tokens))
	{
		admin.GET("/me", h.Auth.Me)
		admin.POST("/raffles", h.Raffle.CreateRaffle)

		raffle := admin.Group("/raffles/:id")
		{
			raffle.PATCH("/status", h.Raffle.UpdateStatus)
			raffle.GET("/stats", h.Raffle.GetStats)

			orders := raffle.Group("/orders")
			{
				orders.GET("", h.Order.ListOrders)
				orders.POST("/approve", h.Order.ApproveOrders)
				orders.POST("/reject", h.Order.RejectOrders)
				orders.POST("/:reference/approve", h.Order.ApproveOrder)
				orders.POST("/:reference/reject", h.Order.RejectOrder)
			}

			draws := raffle.Group("/draws")
			{
				draws.GET("", h.Draw.GetDraws)
				draws.GET("/candidates", h.Draw.GetCandidates)
				draws.POST("", h.Draw.ExecuteDraw)
				draws.DELETE("/:drawId", h.Draw.DeleteDraw)
				draws.POST("/:drawId/announce", h.Draw.AnnounceDraw)
			}
		}

		admin.POST("/maintenance/reclaim", h.Ticket.ReclaimExpired)
		admin.POST("/notifications/dispatch", h.Notification.Dispatch)

		settings := admin.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PUT("/notification-gateway", h.Settings.UpdateNotificationGateway)
		}
	}

	return router
}
