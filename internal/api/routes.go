package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires all endpoints. Scan triggering requires a reviewer or
// admin token; reads require any valid token.
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMW.RequireAuthentication())
	{
		packages := v1.Group("/packages")
		{
			packages.POST("/:id/scan", s.authMW.RequireRole("admin", "reviewer"), s.scanController.TriggerScan)
			packages.GET("/:id/scans", s.scanController.ListScans)
			packages.GET("/:id/scans/latest", s.scanController.GetLatestScan)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "ok"
	if err := s.db.Ping(); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    dbStatus,
		"version":   s.config.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
