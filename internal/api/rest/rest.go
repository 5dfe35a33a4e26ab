package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes. Middlewares in protected guard the
// transfer routes only, the health check stays open.
func SetupRoutes(router *gin.Engine, handler Handler, protected ...gin.HandlerFunc) {
	// Health check endpoint (no auth)
	router.GET("/health", handler.HealthCheck)

	transfers := router.Group("/", protected...)
	{
		transfers.GET("/transfers", handler.ListTransfers)
		transfers.GET("/transfers/:tx_hash", handler.GetTransfer)

		// Path served by the first release
		transfers.GET("/", handler.ListTransfers)
	}
}
