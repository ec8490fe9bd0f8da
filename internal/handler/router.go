package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wedding/guesthub/internal/config"
	"wedding/guesthub/internal/handler/middleware"
	jwtpkg "wedding/guesthub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	gatherer prometheus.Gatherer,
	guestHandler *GuestHandler,
	bookingHandler *BookingHandler,
	eventsHandler *EventsHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Guest-facing routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.GET("/me/guest", guestHandler.Me)
		protected.POST("/me/rsvp", guestHandler.SubmitRSVP)

		protected.GET("/schedules", bookingHandler.ListSchedules)
		protected.POST("/bookings", bookingHandler.Book)
		protected.GET("/bookings", bookingHandler.List)
		protected.DELETE("/bookings/:id", bookingHandler.Cancel)

		if eventsHandler != nil {
			protected.GET("/events", eventsHandler.Stream)
		}
	}

	// Admin routes (JWT + admin check)
	if adminHandler != nil {
		admin := r.Group("/api/v1/admin")
		admin.Use(middleware.JWTAuth(jwtManager))
		admin.Use(middleware.AdminAuth(cfg.Admin.UserIDs))
		{
			admin.GET("/guests", adminHandler.ListGuests)
			admin.POST("/guests", adminHandler.CreateGuest)
			admin.POST("/guests/import", adminHandler.ImportGuests)
			admin.POST("/guests/bulk-archive", adminHandler.BulkArchive)
			admin.POST("/guests/sync", adminHandler.SyncAccounts)
			admin.GET("/guests/stats", adminHandler.Stats)
			admin.GET("/guests/export.csv", adminHandler.ExportCSV)

			admin.GET("/guests/:id", adminHandler.GetGuest)
			admin.PUT("/guests/:id", adminHandler.UpdateGuest)
			admin.POST("/guests/:id/link", adminHandler.LinkGuest)
			admin.POST("/guests/:id/unlink", adminHandler.UnlinkGuest)
			admin.POST("/guests/:id/archive", adminHandler.ArchiveGuest)
			admin.POST("/guests/:id/restore", adminHandler.RestoreGuest)
			admin.POST("/guests/:id/rsvp", adminHandler.SetRSVPStatus)
			admin.POST("/guests/:id/invitation-sent", adminHandler.MarkInvitationSent)
			admin.GET("/guests/:id/history", adminHandler.GuestHistory)
			admin.GET("/guests/:id/communications", adminHandler.GuestCommunications)

			admin.POST("/schedules", adminHandler.CreateSchedule)
		}
	}

	return r
}
