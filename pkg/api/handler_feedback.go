package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
)

// feedbackHandler handles POST /api/feedback (§6), recording whether the
// caller accepted a build-board result. Idempotent by (build_id, user_id).
func (s *Server) feedbackHandler(c *echo.Context) error {
	userID, err := s.requireUser(c)
	if err != nil {
		return mapOrchestratorError(err)
	}

	var body FeedbackRequest
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.BuildID == "" {
		return invalidRequest("build_id is required")
	}

	err = s.modStore.RecordBuildFeedback(c.Request().Context(), uuid.NewString(), body.BuildID, userID, body.Accepted, body.Comment)
	if err != nil {
		return mapOrchestratorError(err)
	}

	return c.JSON(http.StatusOK, &FeedbackResponse{Success: true})
}

// categorizationFeedbackHandler handles POST /api/feedback/categorization
// (§6), recording whether the caller accepted an auto-sort/build-board
// categorization. Idempotent by (build_id, user_id).
func (s *Server) categorizationFeedbackHandler(c *echo.Context) error {
	userID, err := s.requireUser(c)
	if err != nil {
		return mapOrchestratorError(err)
	}

	var body CategorizationFeedbackRequest
	if err := c.Bind(&body); err != nil {
		return invalidRequest(err.Error())
	}
	if body.BuildID == "" {
		return invalidRequest("build_id is required")
	}

	err = s.modStore.RecordSortFeedback(c.Request().Context(), uuid.NewString(), body.BuildID, userID, body.ModToCategory, body.Accepted, body.Comment)
	if err != nil {
		return mapOrchestratorError(err)
	}

	return c.JSON(http.StatusOK, &FeedbackResponse{Success: true})
}
