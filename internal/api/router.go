package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/api/handler"
	"github.com/library-circulation/internal/api/middleware"
	"github.com/library-circulation/internal/domain/identity"
	"github.com/library-circulation/internal/platform/auth"
)

// handlers bundles the route targets
type handlers struct {
	loans        *handler.LoanHandler
	fines        *handler.FineHandler
	reservations *handler.ReservationHandler
	copies       *handler.CopyHandler
	history      *handler.HistoryHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, verifier auth.Verifier, h handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	staff := middleware.RequireRoles(identity.RoleAdmin, identity.RoleLibrarian)

	// API v1 endpoints, all authenticated
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Authenticate(logger, verifier))
	{
		issues := v1.Group("/issues")
		{
			issues.POST("", staff, h.loans.Issue)
			issues.GET("", h.loans.List)
			issues.GET("/:id", h.loans.GetByID)
			issues.PUT("/:id/return", staff, h.loans.Return)
			issues.GET("/:id/history", staff, h.history.GetByLoanID)
		}

		fines := v1.Group("/fines")
		{
			fines.POST("/calculate/:loanId", staff, h.fines.Calculate)
			fines.GET("", staff, h.fines.List)
			fines.GET("/:id", h.fines.GetByID)
			fines.PUT("/:id/pay", h.fines.Pay)
		}

		reservations := v1.Group("/reservations")
		{
			reservations.POST("", h.reservations.Create)
			reservations.GET("", h.reservations.List)
			reservations.GET("/:id", h.reservations.GetByID)
			reservations.PUT("/:id/cancel", h.reservations.Cancel)
			reservations.PUT("/:id/complete", staff, h.reservations.Complete)
		}

		members := v1.Group("/members/:id")
		{
			members.GET("/issues", h.loans.ListForMember)
			members.GET("/fines", h.fines.ListForMember)
			members.GET("/history", h.history.GetByMemberID)
		}

		books := v1.Group("/books/:id")
		{
			books.GET("/reservations", h.reservations.ListForBook)
			books.GET("/copies/available", h.copies.ListAvailable)
		}

		copies := v1.Group("/copies")
		{
			copies.GET("/:id", h.copies.GetByID)
			copies.PUT("/:id/status", staff, h.copies.ChangeStatus)
			copies.DELETE("/:id", staff, h.copies.Delete)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
