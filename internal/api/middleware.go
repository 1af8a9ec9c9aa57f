package api

import (
	"log/slog"
	"time"

	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// NewRouter builds the gin engine with recovery, request IDs, access logs and CORS.
func NewRouter(deps Dependencies, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(deps.Logger), CORS(corsOrigins))
	SetupRoutes(router, deps)
	return router
}

// CORS allows the dashboard to call the API from another origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RequestID propagates X-Request-ID, generating one when absent, and stores it
// as the correlation ID of the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.WithCorrelationID(c.Request.Context(), c.GetHeader(requestIDHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, logging.CorrelationID(ctx))
		c.Next()
	}
}

func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.FromContext(c.Request.Context(), logger).Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
