package api

import (
	"context"
	"strings"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/modforge/assembly/pkg/events"
)

// isWebSocketUpgrade reports whether the client asked for a WebSocket
// upgrade on this request, matching §6 "all return either a one-shot JSON
// body or a progress stream" — the same endpoint serves both, keyed off
// the request's own Upgrade header rather than a separate URL.
func isWebSocketUpgrade(c *echo.Context) bool {
	r := c.Request()
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// openProgressStream upgrades the connection and registers it with the
// events Manager under requestID, returning a Publisher and a context that
// is cancelled when the client disconnects or sends a cancel message
// (§4.N).
func (s *Server) openProgressStream(c *echo.Context, requestID string) (events.Publisher, context.Context, func(), error) {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin validation is left to a reverse-proxy allowlist in front of
		// this service; this engine has no session-cookie attack surface to
		// protect against cross-origin WebSocket use.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	stream, ctx := s.events.Open(c.Request().Context(), requestID, conn)
	pub := events.NewStreamPublisher(stream)
	return pub, ctx, stream.Close, nil
}
