package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2026-04-17T02:00:00Z"`
}

// SetupHealthRoutes registers health check and metrics endpoints
func SetupHealthRoutes(router *gin.Engine, docStore *cache.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC(),
		})
	})

	// The document store degrades to read-only timeline state when the cache
	// is down, so its health is reported separately from process health.
	router.GET("/health/cache", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if !docStore.IsHealthy() {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
