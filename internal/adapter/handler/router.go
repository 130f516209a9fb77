package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/callsight-team/callsight/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	callHandler    *Call
	webhookHandler *Webhook
	authMiddleware echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, callHandler *Call, webhookHandler *Webhook, authMiddleware echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:            cfg,
		callHandler:    callHandler,
		webhookHandler: webhookHandler,
		authMiddleware: authMiddleware,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupCallRoutes(v1)
	rt.setupWebhookRoutes(v1)
}

// setupCallRoutes configures the call analysis routes
func (rt *Router) setupCallRoutes(g *echo.Group) {
	callGroup := g.Group("/calls")
	if rt.authMiddleware != nil {
		callGroup.Use(rt.authMiddleware)
	}

	if rt.callHandler != nil {
		callGroup.POST("", rt.callHandler.Submit)
		callGroup.GET("", rt.callHandler.List)
		callGroup.GET("/:id", rt.callHandler.Get)
		callGroup.GET("/:id/transcript", rt.callHandler.GetTranscript)
	} else {
		callGroup.POST("", rt.notImplemented)
		callGroup.GET("", rt.notImplemented)
		callGroup.GET("/:id", rt.notImplemented)
		callGroup.GET("/:id/transcript", rt.notImplemented)
	}
}

// setupWebhookRoutes configures transcription provider webhooks. These are
// authenticated by HMAC signature, not bearer tokens.
func (rt *Router) setupWebhookRoutes(g *echo.Group) {
	webhookGroup := g.Group("/webhooks")

	if rt.webhookHandler != nil {
		webhookGroup.POST("/assemblyai", rt.webhookHandler.HandleAssemblyAI)
	} else {
		webhookGroup.POST("/assemblyai", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":  "This endpoint is not yet implemented",
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	env := "production"
	if rt.cfg != nil && rt.cfg.Server.Environment != "" {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": env,
	})
}
