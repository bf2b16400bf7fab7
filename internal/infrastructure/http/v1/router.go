// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/http/v1/handlers"
	"oficina/internal/infrastructure/http/v1/middleware"
	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

// RouterConfig holds the services and adapters the router exposes.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Catalog *inventory.Catalog
	Stock   *inventory.Service
	Orders  *serviceorder.Service

	// Health reports store reachability; nil for the in-memory backend.
	Health  handlers.Pinger
	Storage string
	Version string

	// HTTPMetrics records request counts and latency; nil disables it.
	HTTPMetrics *metrics.HTTP

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: Recovery must be outermost, ErrorHandler innermost.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger, cfg.HTTPMetrics))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Health, cfg.Storage, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		base := handlers.NewBaseHandler()

		handlers.NewPartHandler(base, cfg.Catalog, cfg.Stock).
			RegisterRoutes(api.Group("/parts"))

		handlers.NewServiceOrderHandler(base, cfg.Orders, cfg.Stock).
			RegisterRoutes(api.Group("/service-orders"))
	}

	return router
}
