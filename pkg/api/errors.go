package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/modforge/assembly/pkg/quota"
)

// ErrorResponse is the wire shape for every non-2xx response (§6 "Error
// response shape"): `{error: <code>, message: <human string>}`.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func httpError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, &ErrorResponse{Error: code, Message: message})
}

func invalidRequest(message string) *echo.HTTPError {
	return httpError(http.StatusBadRequest, "invalid_request", message)
}

// mapOrchestratorError maps an auth/quota/orchestrator error to the wire
// error taxonomy (§6 error codes, §7 Error Handling Design).
func mapOrchestratorError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errMissingToken):
		return httpError(http.StatusUnauthorized, "unauthorized", "missing bearer token")
	case errors.Is(err, errMalformedToken), errors.Is(err, errInvalidSignature), errors.Is(err, errWrongAudience):
		return httpError(http.StatusUnauthorized, "unauthorized", "invalid bearer token")
	case errors.Is(err, errTokenExpired):
		return httpError(http.StatusUnauthorized, "unauthorized", "bearer token expired")
	}

	var rejected *quota.Rejected
	if errors.As(err, &rejected) {
		switch rejected.Reason {
		case quota.ReasonTierForbidden:
			return httpError(http.StatusForbidden, "tier_forbidden", "this feature requires a paid subscription tier")
		case quota.ReasonDailyExceeded:
			return httpError(http.StatusTooManyRequests, "daily_exceeded", "daily request limit reached")
		case quota.ReasonMonthlyExceeded:
			return httpError(http.StatusTooManyRequests, "monthly_exceeded", "monthly request limit reached")
		case quota.ReasonTokensExceeded:
			return httpError(http.StatusTooManyRequests, "tokens_exceeded", "AI token budget exhausted")
		}
	}

	// Every other orchestrator failure — LLM gateway faults, registry
	// lookups, unexpected store errors — is surfaced as an opaque internal
	// error; the orchestrator's own stage-kind event already told the
	// progress-stream client which stage failed (§4.P).
	slog.Error("unexpected orchestrator error", "error", err)
	return httpError(http.StatusInternalServerError, "internal", "internal server error")
}
