// Package httpapi provides the HTTP API for autoreplyd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/consolidate"
	"github.com/fyrsmithlabs/autoreply/internal/engine"
	"github.com/fyrsmithlabs/autoreply/internal/feedback"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Consolidator triggers an on-demand consolidation pass.
type Consolidator interface {
	Run(ctx context.Context) (consolidate.Report, error)
}

// Server provides HTTP endpoints for autoreplyd.
type Server struct {
	echo         *echo.Echo
	engine       *engine.Engine
	feedback     *feedback.Processor
	consolidator Consolidator
	logger       *zap.Logger
	config       *Config
}

// NewServer creates the HTTP server. The consolidator is optional; when
// nil the consolidation endpoint reports the feature as unavailable.
func NewServer(eng *engine.Engine, processor *feedback.Processor, consolidator Consolidator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("feedback processor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8750,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:         e,
		engine:       eng,
		feedback:     processor,
		consolidator: consolidator,
		logger:       logger,
		config:       cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/resolve", s.handleResolve)
	v1.POST("/feedback", s.handleFeedback)
	v1.POST("/consolidate", s.handleConsolidate)
	v1.GET("/stats", s.handleStats)
}

// ResolveRequest is the request body for POST /api/v1/resolve.
type ResolveRequest struct {
	Query string `json:"query"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleResolve answers a request from the learned stores with model
// fallback.
func (s *Server) handleResolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid resolve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	resolution, err := s.engine.Resolve(c.Request().Context(), req.Query)
	if err != nil {
		if errors.Is(err, engine.ErrNoAnswer) {
			return echo.NewHTTPError(http.StatusNotFound, "no answer available")
		}
		s.logger.Error("resolution failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "resolution failed")
	}
	return c.JSON(http.StatusOK, resolution)
}

// handleFeedback applies an outcome signal to the learned stores.
func (s *Server) handleFeedback(c echo.Context) error {
	var event feedback.Event
	if err := c.Bind(&event); err != nil {
		s.logger.Warn("invalid feedback request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if event.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	outcome, err := s.feedback.Apply(c.Request().Context(), event)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, outcome)
	case errors.Is(err, feedback.ErrInvalidVerdict), errors.Is(err, feedback.ErrInvalidScore):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, feedback.ErrTargetNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no learned entry matches the query")
	default:
		s.logger.Error("feedback application failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "feedback application failed")
	}
}

// handleConsolidate runs one consolidation pass and returns its report.
func (s *Server) handleConsolidate(c echo.Context) error {
	if s.consolidator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "consolidation is not configured")
	}

	report, err := s.consolidator.Run(c.Request().Context())
	if err != nil {
		s.logger.Error("consolidation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "consolidation failed")
	}
	return c.JSON(http.StatusOK, report)
}

// handleStats returns a snapshot of engine activity.
func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Snapshot())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
