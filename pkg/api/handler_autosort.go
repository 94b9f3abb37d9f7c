package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/tracer"
)

// autoSortHandler handles POST /api/ai/auto-sort (§6). Unlike build-board
// and crash-doctor, auto-sort is a single LLM call rather than a multi-stage
// pipeline, but it still supports the same one-shot-or-stream dual mode for
// consistency with the other two AI endpoints.
func (s *Server) autoSortHandler(c *echo.Context) error {
	userID, err := s.requireUser(c)
	if err != nil {
		return mapOrchestratorError(err)
	}

	var body AutoSortRequestBody
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if len(body.Mods) == 0 {
		return invalidRequest("mods must not be empty")
	}

	mods := make([]orchestrator.AutoSortMod, 0, len(body.Mods))
	for _, m := range body.Mods {
		if m.SourceID == "" {
			return invalidRequest("every mod requires a source_id")
		}
		mods = append(mods, orchestrator.AutoSortMod{
			Name:        m.Name,
			SourceID:    m.SourceID,
			Description: m.Description,
		})
	}

	req := orchestrator.AutoSortRequest{UserID: userID, Mods: mods}
	requestID := uuid.NewString()

	if !isWebSocketUpgrade(c) {
		tr := tracer.New(requestID)
		result, err := s.orchestrator.RunAutoSort(c.Request().Context(), req, tr, nil)
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
	_, _ = s.orchestrator.RunAutoSort(ctx, req, tr, pub)
	return nil
}
