// Package api provides the HTTP surface for the modpack assembly and
// crash-analysis engine (§6).
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/modforge/assembly/pkg/config"
	"github.com/modforge/assembly/pkg/database"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/store"
	"github.com/modforge/assembly/pkg/version"
)

// Server is the HTTP API server fronting the orchestrators.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg      *config.Config
	env      *config.Env
	dbClient *database.Client
	modStore *store.Store

	orchestrator *orchestrator.Orchestrator
	events       *events.Manager
}

// NewServer creates a new API server with Echo v5, wiring every route
// needed by §6's external interface.
func NewServer(
	cfg *config.Config,
	env *config.Env,
	dbClient *database.Client,
	modStore *store.Store,
	orch *orchestrator.Orchestrator,
	mgr *events.Manager,
) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          cfg,
		env:          env,
		dbClient:     dbClient,
		modStore:     modStore,
		orchestrator: orch,
		events:       mgr,
	}

	s.setupRoutes()
	return s
}

// ValidateWiring checks that every required collaborator is set. Call this
// after NewServer and before Start/StartWithListener, so a wiring gap is
// caught at startup rather than surfacing as a nil-pointer panic at request
// time.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.orchestrator == nil {
		errs = append(errs, fmt.Errorf("orchestrator not set"))
	}
	if s.events == nil {
		errs = append(errs, fmt.Errorf("events manager not set"))
	}
	if s.modStore == nil {
		errs = append(errs, fmt.Errorf("mod store not set"))
	}
	if s.env == nil {
		errs = append(errs, fmt.Errorf("env not set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server wiring incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// setupRoutes registers every endpoint named in §6.
func (s *Server) setupRoutes() {
	// Server-wide body size limit, comfortably above a crash log or a
	// themed-pack board_state payload.
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	ai := s.echo.Group("/api/ai")
	ai.POST("/build-board", s.buildBoardHandler)
	ai.POST("/auto-sort", s.autoSortHandler)
	ai.POST("/crash-doctor/analyze", s.crashAnalyzeHandler)

	s.echo.POST("/api/get-mod-tags", s.modTagsHandler)
	s.echo.POST("/api/legacy/search", s.legacySearchHandler)
	s.echo.POST("/api/feedback", s.feedbackHandler)
	s.echo.POST("/api/feedback/categorization", s.categorizationFeedbackHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health. Only this engine's own components
// (database) are checked; the LLM gateway and mod registry are external
// dependencies excluded so a flaky third party never restarts a healthy pod.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := "healthy"

	if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
		status = "unhealthy"
		checks["database"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: "healthy"}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	})
}
