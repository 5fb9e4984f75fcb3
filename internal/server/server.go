// Package server is the HTTP adapter over the audit core. It is a thin
// layer translating requests into parser, policy, registry and report
// calls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds HTTP server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP adapter
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// New creates the server and mounts all routes.
func New(cfg Config, handlers *Handlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/audits", handlers.RunAudit)
		api.PATCH("/audits/transactions/:index", handlers.UpdateTransaction)
		api.POST("/audits/confirm", handlers.ConfirmAudit)
		api.DELETE("/audits", handlers.ResetAudit)

		api.GET("/records", handlers.ListRecords)
		api.DELETE("/records", handlers.BulkDeleteRecords)
		api.POST("/records/:id/settle", handlers.SettleRecord)
		api.GET("/records/export", handlers.ExportRecords)

		api.GET("/reports/:kind", handlers.GetReport)
		api.GET("/reports/:kind/export", handlers.ExportReport)
		api.POST("/reports/:kind/notify", handlers.NotifyReport)
	}

	return s
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
