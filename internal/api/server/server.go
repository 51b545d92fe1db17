package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/ff-flow/internal/api/middleware"
	"github.com/feral-file/ff-flow/internal/api/rest"
	"github.com/feral-file/ff-flow/internal/liveupdate"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	handler    rest.Handler
	hub        liveupdate.Hub
	users      store.UserStore
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, handler rest.Handler, hub liveupdate.Hub, users store.UserStore) *Server {
	return &Server{
		config:  cfg,
		handler: handler,
		hub:     hub,
		users:   users,
	}
}

// Router builds the gin engine with every route and middleware
func (s *Server) Router() *gin.Engine {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SetupCORS(s.config.CORSOrigins))
	router.Use(middleware.APIUsage(s.users))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.hub != nil {
		router.GET("/ws", gin.WrapF(s.hub.ServeWS))
	}

	rest.SetupRoutes(router, s.handler)
	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
