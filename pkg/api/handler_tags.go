package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// modTagsHandler handles POST /api/get-mod-tags (§6 "public, simple
// synchronous call"). No bearer token is required since this is a
// read-only lookup against the Mod Store's own catalog data.
func (s *Server) modTagsHandler(c *echo.Context) error {
	var body ModTagsRequest
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.SourceID == "" {
		return invalidRequest("source_id is required")
	}

	mod, err := s.modStore.GetMod(c.Request().Context(), body.SourceID)
	if err != nil {
		return invalidRequest("unknown source_id")
	}

	return c.JSON(http.StatusOK, &ModTagsResponse{
		SourceID: mod.SourceID,
		Tags:     mod.Tags,
	})
}
