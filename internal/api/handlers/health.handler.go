package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigilante-core/internal/monitoring"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

const serviceName = "vigilante-core"

type HealthHandler struct {
	cache  cache.Cache // nil when no cache is configured
	logger logger.Logger
}

func NewHealthHandler(c cache.Cache, logger logger.Logger) *HealthHandler {
	return &HealthHandler{cache: c, logger: logger}
}

// GET /health - liveness
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   monitoring.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - readiness. The in-memory fallback cache counts as degraded
// but ready; a configured Valkey node that fails its ping is not ready.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	check := gin.H{"status": "disabled"}
	status, httpStatus := "ready", http.StatusOK
	switch {
	case h.cache == nil:
	case cache.IsMemory(h.cache):
		check = gin.H{"status": "degraded", "backend": "memory"}
	default:
		if err := h.cache.HealthCheck(ctx); err != nil {
			h.logger.Warn("Cache health check failed", "error", err)
			check = gin.H{"status": "unhealthy", "backend": "valkey", "error": err.Error()}
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			check = gin.H{"status": "healthy", "backend": "valkey"}
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   serviceName,
		"version":   monitoring.Version,
		"checks":    gin.H{"cache": check},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
