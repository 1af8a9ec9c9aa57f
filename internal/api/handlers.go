package api

import (
	"errors"
	"log/slog"
	"net/http"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/axellelanca/linkshortener/internal/models"
	"github.com/axellelanca/linkshortener/internal/monitor"
	"github.com/axellelanca/linkshortener/internal/services"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the routes are wired to.
type Dependencies struct {
	Links    *services.LinkService
	Resolver *services.Resolver
	Health   *monitor.HealthMonitor
	Logger   *slog.Logger
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router.GET("/health", HealthCheckHandler(deps.Health))

	links := router.Group("/links")
	{
		links.GET("", ListLinksHandler(deps.Links, deps.Logger))
		links.POST("", CreateLinkHandler(deps.Links, deps.Logger))
		links.GET("/:code", GetLinkHandler(deps.Resolver, deps.Logger))
		links.DELETE("/:code", DeleteLinkHandler(deps.Links, deps.Logger))
	}

	// Redirection Route - handles the actual URL redirection at root level
	router.GET("/:code", RedirectHandler(deps.Resolver, deps.Logger))
}

// HealthCheckHandler reports store reachability; 503 when the store is down.
func HealthCheckHandler(health *monitor.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := health.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}

// CreateLinkRequest is the body of POST /links. An empty code asks for a random one.
type CreateLinkRequest struct {
	URL  string `json:"url"`
	Code string `json:"code"`
}

func CreateLinkHandler(linkService *services.LinkService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		link, err := linkService.CreateLink(c.Request.Context(), req.URL, req.Code)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, link)
	}
}

func ListLinksHandler(linkService *services.LinkService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := linkService.ListLinks(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		if links == nil {
			links = []models.Link{}
		}
		c.JSON(http.StatusOK, links)
	}
}

// GetLinkHandler returns a link with its statistics.
func GetLinkHandler(resolver *services.Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := resolver.GetStats(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func DeleteLinkHandler(linkService *services.LinkService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := linkService.DeleteLink(c.Request.Context(), c.Param("code")); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RedirectHandler sends the visitor to the stored URL. The click is recorded by
// the resolver without delaying the response.
func RedirectHandler(resolver *services.Resolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := resolver.Resolve(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// respondError maps the error taxonomy to a status and a client-safe message.
// Unclassified failures are logged in full and answered generically.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *customerrors.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, customerrors.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	case errors.Is(err, customerrors.ErrCodeTaken), errors.Is(err, customerrors.ErrDuplicateCode):
		c.JSON(http.StatusConflict, gin.H{"error": "Code already exists"})
	case errors.Is(err, customerrors.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, customerrors.ErrAllocationExhausted):
		logging.FromContext(c.Request.Context(), logger).Error("code allocation exhausted", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate unique code"})
	default:
		logging.FromContext(c.Request.Context(), logger).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
