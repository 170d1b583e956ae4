package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// requestLogMiddleware writes one debug line per request
func requestLogMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s) [%s]",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.GetString("request_id"))
	}
}

// errorHandlerMiddleware handles panics and errors
func errorHandlerMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic serving %s: %v", c.Request.URL.Path, err)
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "internal server error",
					Message: "an unexpected error occurred",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// originGuardMiddleware rejects browser requests from origins that are not
// allowed. Requests without an Origin header (curl, scripts) pass.
func originGuardMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "origin " + origin + " is not allowed",
		})
	}
}

// requireJSONMiddleware rejects request bodies that are not application/json
func requireJSONMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength != 0 && c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, ErrorResponse{
				Error:   "unsupported media type",
				Message: "request body must be application/json",
			})
			return
		}
		c.Next()
	}
}
