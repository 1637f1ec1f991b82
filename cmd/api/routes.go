package main

import (
	"net/http"
	"os"

	"jewgo-discovery/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "net/http/pprof"
)

// setupRoutes configures all routes
func (a *App) setupRoutes() {
	a.setupOperationalRoutes()
	a.setupAPIRoutes()
}

// setupOperationalRoutes configures metrics, profiling and health endpoints
func (a *App) setupOperationalRoutes() {
	// Expose pprof profiling endpoints (disable in production)
	if os.Getenv("ENV") != "production" {
		a.Router.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	// Expose Prometheus metrics endpoint
	a.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.Router.GET("/health", a.HealthHandler.Health)
}

// setupAPIRoutes configures API routes
func (a *App) setupAPIRoutes() {
	api := a.Router.Group("/api")
	{
		// Realtime websocket; token is checked during the subscribe handshake
		// upstream, the core accepts the upgraded connection directly.
		api.GET("/realtime", a.RealtimeHandler.Connect)

		// Protected routes
		protected := api.Group("/listings")
		protected.Use(middleware.AuthMiddleware(a.Config.Auth.JWTSecret))
		{
			protected.GET("/search", a.SearchHandler.SearchListings)
			protected.GET("/:id", a.SearchHandler.GetListing)
		}
	}

	// Ingestion-facing endpoints, reachable only inside the deployment.
	internal := a.Router.Group("/internal")
	{
		internal.POST("/listings/changed", a.InternalHandler.ListingChanged)
	}
}
