package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/handlers"
	"jewgo-discovery/internal/hours"
	"jewgo-discovery/internal/hub"
	"jewgo-discovery/internal/middleware"
	"jewgo-discovery/internal/pager"
	"jewgo-discovery/internal/repositories"
	"jewgo-discovery/internal/search"
	"jewgo-discovery/internal/validators"
	"jewgo-discovery/internal/warmer"
	"jewgo-discovery/internal/watcher"
	"jewgo-discovery/pkg/cache"
	"jewgo-discovery/pkg/config"
	"jewgo-discovery/pkg/database"
	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// App represents the application structure
type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *database.DB
	Cache           *cache.Cache
	Hub             *hub.Hub
	Prefetcher      *pager.Prefetcher
	Warmer          *warmer.Warmer
	StatusWatcher   *watcher.StatusWatcher
	SearchHandler   *handlers.SearchHandler
	RealtimeHandler *handlers.RealtimeHandler
	InternalHandler *handlers.InternalHandler
	HealthHandler   *handlers.HealthHandler
	RateLimiter     *middleware.RateLimiter
	Server          *http.Server
}

// Create and initialize a new App instance
func NewApp(cfg *config.Config) *App {
	app := &App{Config: cfg}

	// Initialize infrastructure
	app.initializeDatabase()
	app.initializeCache()
	app.initializeMetrics()
	app.initializeRateLimiter()

	// Initialize business logic
	app.initializeDependencies()

	// Initialize web layer
	app.initializeRouter()

	return app
}

// initialize the database connection
func (a *App) initializeDatabase() {
	db, err := database.Connect(a.Config)
	if err != nil {
		logger.GlobalLogger.Errorf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	a.DB = db
}

// initialize the Redis cache
func (a *App) initializeCache() {
	c, err := cache.New(a.Config)
	if err != nil {
		logger.GlobalLogger.Errorf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	a.Cache = c
}

// initialize Prometheus metrics
func (a *App) initializeMetrics() {
	metrics.Init()
}

// initialize the rate limiter
func (a *App) initializeRateLimiter() {
	a.RateLimiter = middleware.NewRateLimiter(rate.Limit(100/60.0), 10)
	go a.RateLimiter.Cleanup()
}

// initialize all dependencies
func (a *App) initializeDependencies() {
	cfg := a.Config

	// repositories
	listingRepo := repositories.NewListingRepository(a.DB.Database)

	// domain components
	geoIndex := geo.NewIndex()
	evaluator := hours.NewEvaluator()
	searchValidator := validators.NewSearchValidator()
	a.Prefetcher = pager.NewPrefetcher(cfg.PrefetchCooldown())

	a.Hub = hub.New(cfg.HeartbeatInterval(), cfg.HeartbeatTimeout(), cfg.SendTimeout(), cfg.Hub.SendBuffer)
	go a.Hub.Run()

	// services
	searchService := search.NewService(
		listingRepo,
		a.Cache,
		geoIndex,
		evaluator,
		searchValidator,
		a.Prefetcher,
		a.Hub,
		cfg.Search.DefaultPageSize,
		cfg.Search.MaxPageSize,
		cfg.CacheTTL(),
		cfg.CursorTTL(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := searchService.Bootstrap(ctx); err != nil {
		logger.GlobalLogger.Errorf("Failed to bootstrap geo index: %v", err)
		os.Exit(1)
	}

	// background loops
	a.Warmer = warmer.New(searchService, a.Prefetcher, cfg)
	a.Warmer.Start()
	a.StatusWatcher = watcher.New(listingRepo, geoIndex, evaluator, a.Hub, a.Hub.ActiveRooms)
	a.StatusWatcher.Start()

	// handlers
	a.SearchHandler = handlers.NewSearchHandler(searchService)
	a.RealtimeHandler = handlers.NewRealtimeHandler(a.Hub)
	a.InternalHandler = handlers.NewInternalHandler(searchService)
	a.HealthHandler = handlers.NewHealthHandler(a.DB, a.Cache, a.Hub)
}

// set up the Gin router with middleware and routes
func (a *App) initializeRouter() {
	a.Router = gin.New()
	a.setupMiddleware()
	a.setupRoutes()
}

// cleanup operations
func (a *App) cleanup() {
	a.StatusWatcher.Stop()
	a.Warmer.Stop()
	a.Prefetcher.Stop()
	a.Hub.Stop()
	a.RateLimiter.Stop()
	a.Cache.Close()
	a.DB.Close()
}
