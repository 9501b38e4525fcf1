// Package api exposes the scan pipeline over HTTP for the marketplace
// review workflow.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stackhaven/marketscan/internal/config"
	"github.com/stackhaven/marketscan/internal/database"
	"github.com/stackhaven/marketscan/internal/database/repositories"
	"github.com/stackhaven/marketscan/internal/middleware"
	"github.com/stackhaven/marketscan/internal/registry"
	"github.com/stackhaven/marketscan/internal/scanner"
)

// Server is the HTTP front end for the scan service.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     *logrus.Logger
	db         database.Database
	authMW     *middleware.AuthMiddleware

	scanController *ScanController
}

// ServerConfig carries the dependencies the server needs.
type ServerConfig struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       database.Database
	Registry registry.Store
	Scanner  *scanner.Service
}

// NewServer creates the API server and its routes.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Scanner == nil {
		return nil, errors.New("scanner service is required")
	}

	server := &Server{
		config: cfg.Config,
		logger: cfg.Logger,
		db:     cfg.DB,
		authMW: middleware.NewAuthMiddleware(cfg.Config.Auth),
	}

	results := repositories.NewScanResultRepository(cfg.DB.DB())
	server.scanController = NewScanController(cfg.Scanner, cfg.Registry, results, cfg.Logger)

	switch server.config.Server.Mode {
	case "release", "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.NewLoggingMiddleware(server.logger).Logger())
	router.Use(middleware.NewRecoveryMiddleware(server.logger).Recovery())

	server.router = router
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", server.config.Server.Host, server.config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  server.config.Server.ReadTimeout,
		WriteTimeout: server.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// Start serves requests in the background. Shutdown is the caller's
// responsibility; the process entry point owns signal handling.
func (s *Server) Start() error {
	go func() {
		s.logger.WithField("address", s.httpServer.Addr).Info("Starting API server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	return nil
}

// Shutdown drains in-flight requests and closes the database.
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down API server...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
	}

	if err := s.db.Close(); err != nil {
		s.logger.WithError(err).Error("Error closing database connection")
	}

	s.logger.Info("API server shutdown complete")
}

// Router returns the Gin router, exposed for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
