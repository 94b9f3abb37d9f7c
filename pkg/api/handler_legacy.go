package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modforge/assembly/pkg/orchestrator"
)

// legacySearchHandler handles POST /api/legacy/search (§12), the
// unauthenticated fallback endpoint spec.md §9 leaves as an open question.
// No bearer token is checked and no request reaches the Quota Gate or the
// LLM Gateway; the orchestrator's legacy flow hard-caps results and runs a
// single keyword search so this path can never bypass quotas or trigger a
// paid call.
func (s *Server) legacySearchHandler(c *echo.Context) error {
	var body LegacySearchRequestBody
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.Query == "" {
		return invalidRequest("query is required")
	}

	result, err := s.orchestrator.RunLegacySearch(c.Request().Context(), s.modStore, orchestrator.LegacySearchRequest{
		Query:     body.Query,
		ModLoader: body.ModLoader,
		MCVersion: body.MCVersion,
		MaxMods:   body.MaxMods,
	})
	if err != nil {
		return mapOrchestratorError(err)
	}

	return c.JSON(http.StatusOK, result)
}
