package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/QQHKX/rollcall-module/config"
	"github.com/QQHKX/rollcall-module/middleware"
	"github.com/QQHKX/rollcall-module/pkg/audio"
)

// App represents the rollcall service application
type App struct {
	engine          *gin.Engine
	config          *config.Config
	logger          zerolog.Logger
	service         *RollcallService
	audioService    *audio.Service
	httpServer      *http.Server
	onShutdown      []func()
	rollcallHandler *RollcallHandler
	audioHandler    *AudioHandler
}

// Options holds server configuration options
type Options struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Service *RollcallService
	Audio   *audio.Service
}

// Router is an alias for gin.Engine for convenience
type Router = gin.Engine

// New creates a new rollcall service application
func New(opts Options) *App {
	// Configure decimal.Decimal to marshal as JSON number instead of string
	// WARNING: This may cause precision loss for decimals with many digits when
	// unmarshaled by clients using IEEE 754 double-precision (e.g., JavaScript)
	decimal.MarshalJSONWithoutQuotes = true

	// Set Gin mode
	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	app := &App{
		engine:       engine,
		config:       opts.Config,
		logger:       opts.Logger,
		service:      opts.Service,
		audioService: opts.Audio,
	}

	app.rollcallHandler = NewRollcallHandler(app)
	app.audioHandler = NewAudioHandler(app, opts.Audio)

	return app
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.engine.Use(middleware.TraceID())

	// Logging middleware
	a.engine.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
	})
}

// RegisterRollcallRoutes registers the rollcall API routes
//
// Flow: HTTP Request -> rollcallRoutes -> RollcallHandler -> RollcallService
//
// Routes registered:
//   - POST   /api/rollcall/draw                 -> RollcallHandler.Draw
//   - POST   /api/rollcall/multi-draw           -> RollcallHandler.StartMultiDraw
//   - GET    /api/rollcall/multi-draw/:id       -> RollcallHandler.MultiDrawState
//   - POST   /api/rollcall/multi-draw/:id/interrupt -> RollcallHandler.InterruptMultiDraw
//   - POST   /api/rollcall/reel-plan            -> RollcallHandler.PlanReel
//   - GET    /api/rollcall/roster               -> RollcallHandler.ListRoster
//   - POST   /api/rollcall/roster               -> RollcallHandler.AddStudent
//   - DELETE /api/rollcall/roster/:id           -> RollcallHandler.RemoveStudent
//   - POST   /api/rollcall/roster/:id/star      -> RollcallHandler.ToggleStar
//   - POST   /api/rollcall/roster/import        -> RollcallHandler.ImportRoster
//   - POST   /api/rollcall/roster/reset-pool    -> RollcallHandler.ResetPool
//   - GET    /api/rollcall/settings             -> RollcallHandler.GetSettings
//   - PUT    /api/rollcall/settings             -> RollcallHandler.UpdateSettings
//   - GET    /api/rollcall/history              -> RollcallHandler.GetHistory
//   - DELETE /api/rollcall/history              -> RollcallHandler.ClearHistory
//   - GET    /api/rollcall/audio/stream         -> AudioHandler.StreamCues (SSE)
//   - GET    /api/rollcall/audio/stream/ws      -> AudioHandler.StreamCuesWebSocket (WebSocket)
func (a *App) RegisterRollcallRoutes() {
	api := a.engine.Group("/api/rollcall")
	{
		api.POST("/draw", a.rollcallHandler.Draw)
		api.POST("/multi-draw", a.rollcallHandler.StartMultiDraw)
		api.GET("/multi-draw/:id", a.rollcallHandler.MultiDrawState)
		api.POST("/multi-draw/:id/interrupt", a.rollcallHandler.InterruptMultiDraw)
		api.POST("/reel-plan", a.rollcallHandler.PlanReel)

		api.GET("/roster", a.rollcallHandler.ListRoster)
		api.POST("/roster", a.rollcallHandler.AddStudent)
		api.DELETE("/roster/:id", a.rollcallHandler.RemoveStudent)
		api.POST("/roster/:id/star", a.rollcallHandler.ToggleStar)
		api.POST("/roster/import", a.rollcallHandler.ImportRoster)
		api.POST("/roster/reset-pool", a.rollcallHandler.ResetPool)

		api.GET("/settings", a.rollcallHandler.GetSettings)
		api.PUT("/settings", a.rollcallHandler.UpdateSettings)

		api.GET("/history", a.rollcallHandler.GetHistory)
		api.DELETE("/history", a.rollcallHandler.ClearHistory)

		// Audio cue streams (SSE and WebSocket)
		api.GET("/audio/stream", a.audioHandler.StreamCues)
		api.GET("/audio/stream/ws", a.audioHandler.StreamCuesWebSocket)
	}

	a.logger.Info().Msg("Rollcall routes registered: /api/rollcall")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(path, handlers...)
}

// RegisterRoutes registers custom routes using a callback
func (a *App) RegisterRoutes(fn func(*gin.Engine)) {
	fn(a.engine)
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server
func (a *App) Run() error {
	a.startHTTPServer()

	// Wait for interrupt signal
	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server with context
func (a *App) RunWithContext(ctx context.Context) error {
	errChan := make(chan error, 1)
	a.startHTTPServerWithErrChan(errChan)

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) startHTTPServer() {
	a.startHTTPServerWithErrChan(nil)
}

func (a *App) startHTTPServerWithErrChan(errChan chan error) {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if errChan != nil {
				errChan <- err
				return
			}
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop any running multi-draw session before tearing down
	if a.service != nil {
		a.service.Stop()
	}

	// Call registered shutdown handlers
	for _, fn := range a.onShutdown {
		fn()
	}

	// Shutdown HTTP server
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// Service returns the rollcall service
func (a *App) Service() *RollcallService {
	return a.service
}

// RollcallHandler returns the built-in rollcall handler
func (a *App) RollcallHandler() *RollcallHandler {
	return a.rollcallHandler
}
