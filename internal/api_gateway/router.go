package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentflow-decision-ledger/internal/api_gateway/handler"
	"github.com/rentflow-decision-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	decisionHandler *handler.DecisionHandler,
	leaseHandler *handler.LeaseHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Payment decision operations
		decisions := v1.Group("/decisions")
		{
			decisions.POST("", decisionHandler.Record)
			decisions.GET("", decisionHandler.ListByTimeRange)
			decisions.GET("/recent", decisionHandler.ListRecent)
			decisions.GET("/count", decisionHandler.Count)
			decisions.GET("/:id", decisionHandler.GetByID)
			decisions.POST("/:id/execution", decisionHandler.MarkExecuted)
		}

		// Asynchronous recording through the decision topic
		v1.POST("/decision-events", decisionHandler.Enqueue)

		// Voice authorization operations
		voice := v1.Group("/voice-authorizations")
		{
			voice.POST("", decisionHandler.RecordVoice)
			voice.GET("/:id", decisionHandler.GetVoiceByID)
		}

		// Lease agreement operations
		leases := v1.Group("/leases")
		{
			leases.POST("", leaseHandler.Record)
			leases.GET("/:id", leaseHandler.GetByID)
			leases.GET("/:id/verification", leaseHandler.Verify)
			leases.POST("/:id/signatures", leaseHandler.Sign)
			leases.POST("/:id/status", leaseHandler.UpdateStatus)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
