package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/config"
)

const testJWTSecret = "test-secret"

func signHS256(t *testing.T, claims jwtClaims, secret string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	payload := base64.RawURLEncoding.EncodeToString(body)
	signingInput := header + "." + payload
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return signingInput + "." + sig
}

func TestVerifyBearerToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1", Audience: "modforge-api", Expiry: time.Now().Add(time.Hour).Unix()}, testJWTSecret)
		sub, err := verifyBearerToken(token, testJWTSecret, "modforge-api")
		require.NoError(t, err)
		assert.Equal(t, "user-1", sub)
	})

	t.Run("no audience check when configured empty", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1"}, testJWTSecret)
		sub, err := verifyBearerToken(token, testJWTSecret, "")
		require.NoError(t, err)
		assert.Equal(t, "user-1", sub)
	})

	t.Run("wrong signature", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1"}, "wrong-secret")
		_, err := verifyBearerToken(token, testJWTSecret, "")
		assert.ErrorIs(t, err, errInvalidSignature)
	})

	t.Run("expired", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1", Expiry: time.Now().Add(-time.Hour).Unix()}, testJWTSecret)
		_, err := verifyBearerToken(token, testJWTSecret, "")
		assert.ErrorIs(t, err, errTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1", Audience: "other"}, testJWTSecret)
		_, err := verifyBearerToken(token, testJWTSecret, "modforge-api")
		assert.ErrorIs(t, err, errWrongAudience)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := verifyBearerToken("not-a-jwt", testJWTSecret, "")
		assert.ErrorIs(t, err, errMalformedToken)
	})
}

func TestServer_RequireUser(t *testing.T) {
	s := &Server{env: &config.Env{JWTSecret: testJWTSecret, JWTAudience: "modforge-api"}}

	t.Run("missing header", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/ai/build-board", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		_, err := s.requireUser(c)
		assert.ErrorIs(t, err, errMissingToken)
	})

	t.Run("valid bearer token", func(t *testing.T) {
		token := signHS256(t, jwtClaims{Subject: "user-1", Audience: "modforge-api", Expiry: time.Now().Add(time.Hour).Unix()}, testJWTSecret)

		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/ai/build-board", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		userID, err := s.requireUser(c)
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})
}
