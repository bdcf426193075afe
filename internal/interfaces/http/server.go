// Package http is the thin operational HTTP adapter. It translates
// requests into calls on the workflow and automation engines and has
// no workflow logic of its own.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the gin engine and http.Server lifecycle
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates the operational HTTP server
func NewServer(cfg ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handlers.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/requests", handlers.CreateRequest)
		v1.GET("/requests", handlers.ListRequests)
		v1.GET("/requests/:id", handlers.GetRequest)
		v1.GET("/requests/:id/history", handlers.GetHistory)
		v1.GET("/requests/:id/decisions", handlers.GetDecisions)
		v1.POST("/requests/:id/advance", handlers.AdvanceRequest)
		v1.POST("/automation/run", handlers.RunAutomationPass)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start begins serving; it blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown drains connections and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
