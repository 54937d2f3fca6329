// Package server exposes the recovery operations engine over HTTP.
//
// It implements a graceful Echo server with the control-plane routes
// (plan, start, pause, approve, command), read-side snapshots, an SSE
// activity stream backed by NATS, and a Prometheus metrics endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/reliefd/internal/config"
	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

// Server represents the HTTP server.
type Server struct {
	cfg    config.ServerConfig
	orch   *ops.Orchestrator
	nc     *nats.Conn
	logger *zap.Logger
	echo   *echo.Echo

	// cmdLimiter throttles POST /v1/command. Nil means unlimited.
	cmdLimiter *rate.Limiter
}

// NewServer creates the HTTP server around an orchestrator.
//
// nc may be nil; the SSE activity stream then reports 503 and every
// other route works normally. logger may be nil.
func NewServer(cfg config.ServerConfig, orch *ops.Orchestrator, nc *nats.Conn, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		cfg:    cfg,
		orch:   orch,
		nc:     nc,
		logger: logger,
		echo:   e,
	}

	if cfg.CommandRatePerMinute > 0 {
		s.cmdLimiter = rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.CommandRatePerMinute)),
			cfg.CommandRatePerMinute,
		)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.GET("/state", s.handleState)
	v1.GET("/queue", s.handleQueue)
	v1.GET("/activity", s.handleActivity)
	v1.GET("/activity/stream", s.handleActivityStream)
	v1.POST("/plan", s.handlePlan)
	v1.POST("/start", s.handleStart)
	v1.POST("/resume", s.handleStart)
	v1.POST("/pause", s.handlePause)
	v1.POST("/approve", s.handleApprove)
	v1.POST("/command", s.handleCommand)
}

// Start runs the server and blocks until ctx is cancelled.
//
// Returns http.ErrServerClosed on graceful shutdown, or any other error
// encountered during startup or shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.cfg.ShutdownTimeout.Duration(),
		)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for registering additional
// routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
