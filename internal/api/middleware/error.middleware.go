package middleware

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigilante-core/internal/series"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler turns the last error attached with c.Error into a JSON
// response. Handlers attach and return without writing a body.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ginErr := c.Errors.Last()
		status := determineStatusCode(ginErr)

		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(RequestIDKey),
			"error", ginErr.Err.Error(),
		}
		if status >= 500 {
			log.Error("HTTP Error", fields...)
		} else {
			log.Warn("HTTP Error", fields...)
		}

		c.JSON(status, ErrorResponse{
			Error:     ginErr.Err.Error(),
			Code:      errorCode(status),
			RequestID: c.GetString(RequestIDKey),
		})
	}
}

func determineStatusCode(e *gin.Error) int {
	err := e.Err
	switch {
	case e.IsType(gin.ErrorTypeBind):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist), errors.Is(err, cache.ErrCacheMiss):
		return http.StatusNotFound
	case errors.Is(err, series.ErrEmptySeries), errors.Is(err, simulation.ErrNoWindow):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	return "INTERNAL_ERROR"
}
