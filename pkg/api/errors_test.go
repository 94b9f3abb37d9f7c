package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/quota"
)

func TestMapOrchestratorError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing token", errMissingToken, http.StatusUnauthorized, "unauthorized"},
		{"malformed token", errMalformedToken, http.StatusUnauthorized, "unauthorized"},
		{"expired token", errTokenExpired, http.StatusUnauthorized, "unauthorized"},
		{"tier forbidden", &quota.Rejected{Reason: quota.ReasonTierForbidden}, http.StatusForbidden, "tier_forbidden"},
		{"daily exceeded", &quota.Rejected{Reason: quota.ReasonDailyExceeded}, http.StatusTooManyRequests, "daily_exceeded"},
		{"monthly exceeded", &quota.Rejected{Reason: quota.ReasonMonthlyExceeded}, http.StatusTooManyRequests, "monthly_exceeded"},
		{"tokens exceeded", &quota.Rejected{Reason: quota.ReasonTokensExceeded}, http.StatusTooManyRequests, "tokens_exceeded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			herr := mapOrchestratorError(tc.err)
			require.NotNil(t, herr)
			assert.Equal(t, tc.wantStatus, herr.Code)

			resp, ok := herr.Message.(*ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, tc.wantCode, resp.Error)
		})
	}

	t.Run("unrecognized error falls back to internal", func(t *testing.T) {
		herr := mapOrchestratorError(fmt.Errorf("something unexpected happened"))
		require.NotNil(t, herr)
		assert.Equal(t, http.StatusInternalServerError, herr.Code)
		resp, ok := herr.Message.(*ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, "internal", resp.Error)
	})
}

func TestInvalidRequest(t *testing.T) {
	herr := invalidRequest("prompt is required")
	assert.Equal(t, http.StatusBadRequest, herr.Code)
	resp, ok := herr.Message.(*ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "invalid_request", resp.Error)
	assert.Equal(t, "prompt is required", resp.Message)
}
