package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// heartbeatInterval is comfortably under the 25s proxy-timeout ceiling
// (§4.N "a heartbeat is emitted at least every 25 seconds").
const heartbeatInterval = 20 * time.Second

// writeTimeout bounds a single WebSocket write.
const writeTimeout = 10 * time.Second

// Manager tracks one Stream per in-flight request. A request's HTTP handler
// registers a Stream when the client upgrades to WebSocket, and looks it up
// by request id so other code (e.g. a cancel endpoint) can reach it.
type Manager struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{streams: make(map[string]*Stream)}
}

// Open registers a new Stream for requestID over conn and starts its
// heartbeat and client read loop. The returned context is cancelled when
// the client disconnects or sends a "cancel" message, propagating
// cancellation to the orchestrator's outstanding LLM and registry calls
// (§4.N "Cancellation by the client closes the stream").
func (m *Manager) Open(parentCtx context.Context, requestID string, conn *websocket.Conn) (*Stream, context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)
	s := &Stream{
		requestID: requestID,
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
	}

	m.register(s)
	go m.runHeartbeat(s)
	go m.readLoop(s)

	return s, ctx
}

// Lookup returns the Stream registered for requestID, if any.
func (m *Manager) Lookup(requestID string) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[requestID]
	return s, ok
}

func (m *Manager) register(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[s.requestID] = s
}

func (m *Manager) unregister(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.streams[s.requestID]; ok && current == s {
		delete(m.streams, s.requestID)
	}
}

// readLoop watches for client disconnect or an explicit cancel message. It
// is the sole reader of conn, matching the teacher's single-goroutine-owns-
// the-connection discipline.
func (m *Manager) readLoop(s *Stream) {
	defer m.unregister(s)
	defer s.cancel()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid progress-stream client message", "request_id", s.requestID, "error", err)
			continue
		}

		switch msg.Action {
		case "cancel":
			return
		case "ping":
			s.sendRaw(typeHeartbeat, nil)
		}
	}
}

// runHeartbeat emits a heartbeat on a fixed interval until the stream
// closes, so intermediary proxies don't time out an idle connection while a
// stage is still running (§4.N).
func (m *Manager) runHeartbeat(s *Stream) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sendRaw(typeHeartbeat, nil)
		}
	}
}
