package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/tracer"
)

// crashAnalyzeHandler handles POST /api/ai/crash-doctor/analyze (§6),
// following the same one-shot-or-stream dual mode as buildBoardHandler.
func (s *Server) crashAnalyzeHandler(c *echo.Context) error {
	userID, err := s.requireUser(c)
	if err != nil {
		return mapOrchestratorError(err)
	}

	var body CrashAnalyzeRequest
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.CrashLog == "" {
		return invalidRequest("crash_log is required")
	}

	req := orchestrator.CrashRequest{
		UserID:    userID,
		CrashLog:  body.CrashLog,
		Board:     body.BoardState,
		MCVersion: body.MCVersion,
		ModLoader: body.ModLoader,
	}

	requestID := uuid.NewString()

	if !isWebSocketUpgrade(c) {
		tr := tracer.New(requestID)
		result, err := s.orchestrator.RunCrash(c.Request().Context(), req, tr, nil)
		if err != nil {
			return mapOrchestratorError(err)
		}
		return c.JSON(http.StatusOK, result)
	}

	pub, ctx, closeStream, err := s.openProgressStream(c, requestID)
	if err != nil {
		return err
	}
	defer closeStream()

	tr := tracer.New(requestID)
	_, _ = s.orchestrator.RunCrash(ctx, req, tr, pub)
	return nil
}
