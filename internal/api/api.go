// Package api serves winsweep's local HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/progress"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server represents the API server
type Server struct {
	router   *gin.Engine
	config   *config.Config
	store    *history.Store
	logger   *logging.Logger
	progress *progress.ProgressReporter
	sweeping atomic.Bool
}

// NewServer creates a new API server. store may be nil when history is disabled.
func NewServer(cfg *config.Config, store *history.Store, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	router := gin.New()
	router.Use(requestIDMiddleware(), requestLogMiddleware(logger), errorHandlerMiddleware(logger))
	router.Use(originGuardMiddleware(cfg.API.AllowedOrigins))
	if len(cfg.API.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.API.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	s := &Server{
		router:   router,
		config:   cfg,
		store:    store,
		logger:   logger,
		progress: progress.NewProgressReporter(),
	}

	s.setupRoutes()

	return s
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.API.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/targets", s.listTargets)

		v1.POST("/sweep", requireJSONMiddleware(), s.sweep)
		v1.GET("/sweep/progress", s.sweepProgress)

		v1.GET("/history", s.listHistory)
		v1.GET("/history/:id", s.getHistory)

		v1.GET("/status", s.status)

		v1.GET("/autostart", s.getAutostart)
		v1.PUT("/autostart", requireJSONMiddleware(), s.setAutostart)
	}
}
