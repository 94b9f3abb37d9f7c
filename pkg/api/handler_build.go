package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/tracer"
)

// buildBoardHandler handles POST /api/ai/build-board (§6). A caller that
// requests a WebSocket upgrade gets the full ordered stage/complete event
// stream (§4.N); any other caller gets a single synchronous JSON response
// carrying only the terminal result.
func (s *Server) buildBoardHandler(c *echo.Context) error {
	userID, err := s.requireUser(c)
	if err != nil {
		return mapOrchestratorError(err)
	}

	var body BuildBoardRequest
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.Prompt == "" {
		return invalidRequest("prompt is required")
	}
	if body.MaxMods <= 0 {
		return invalidRequest("max_mods must be positive")
	}

	req := orchestrator.AssemblyRequest{
		UserID:           userID,
		Prompt:           body.Prompt,
		MCVersion:        body.MCVersion,
		ModLoader:        body.ModLoader,
		MaxMods:          body.MaxMods,
		CurrentMods:      body.CurrentMods,
		ProjectID:        body.ProjectID,
		FabricCompatMode: body.FabricCompatMode,
	}

	requestID := uuid.NewString()

	if !isWebSocketUpgrade(c) {
		tr := tracer.New(requestID)
		result, err := s.orchestrator.RunAssembly(c.Request().Context(), req, tr, nil)
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
	_, _ = s.orchestrator.RunAssembly(ctx, req, tr, pub)
	return nil
}
