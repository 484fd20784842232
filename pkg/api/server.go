// Package api exposes the supervisor's HTTP surface: the check-in endpoint,
// switch management, script discovery, health, and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/detrin/sentinel/pkg/config"
	"github.com/detrin/sentinel/pkg/database"
	"github.com/detrin/sentinel/pkg/services"
	"github.com/detrin/sentinel/pkg/watchdog"
)

// Server represents the API server.
type Server struct {
	echo          *echo.Echo
	httpServer    *http.Server
	switchService *services.SwitchService
	dbClient      *database.Client
	watchdog      *watchdog.Scheduler
	scriptsDir    string
}

// NewServer creates a new API server with all routes registered.
func NewServer(cfg *config.Config, dbClient *database.Client, switchService *services.SwitchService, wd *watchdog.Scheduler) *Server {
	s := &Server{
		switchService: switchService,
		dbClient:      dbClient,
		watchdog:      wd,
		scriptsDir:    cfg.Scripts.Dir,
	}

	e := echo.New()
	e.Use(securityHeaders())
	s.routes(e)
	s.echo = e

	s.httpServer = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes registers every endpoint on the given echo instance.
func (s *Server) routes(e *echo.Echo) {
	e.POST("/checkin/:id", s.checkinHandler)

	e.POST("/switches", s.createSwitchHandler)
	e.GET("/switches", s.listSwitchesHandler)
	e.GET("/switches/:id", s.getSwitchHandler)
	e.DELETE("/switches/:id", s.deleteSwitchHandler)

	e.GET("/scripts", s.listScriptsHandler)
	e.GET("/health", s.healthHandler)
	e.GET("/metrics", func(c *echo.Context) error {
		promhttp.Handler().ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// Start serves HTTP on addr until Shutdown is called. It blocks, returning
// http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new requests and lets in-flight ones drain.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
