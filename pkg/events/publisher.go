package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrStreamClosed is returned by Stream.Send once a terminal event has
// already been delivered (§4.N "exactly one terminal event").
var ErrStreamClosed = errors.New("events: stream already closed by a terminal event")

// Stream is one client's progress connection for a single request. All
// sends are serialized through mu, matching the teacher's single-writer
// discipline for a *websocket.Conn.
type Stream struct {
	requestID string
	conn      *websocket.Conn
	ctx       context.Context
	cancel    context.CancelFunc

	mu           sync.Mutex
	terminalSent bool
}

// Close cancels the stream's context and closes the underlying connection.
func (s *Stream) Close() {
	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

// Send delivers one Envelope, enforcing issue order (via the caller's
// sequential stage invocation) and the exactly-one-terminal invariant: once
// a "complete" or "error" event is sent, every later Send is rejected.
func (s *Stream) Send(ctx context.Context, envelope Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminalSent {
		return ErrStreamClosed
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return err
	}

	if envelope.Type == TypeComplete || envelope.Type == TypeError {
		s.terminalSent = true
	}
	return nil
}

// sendRaw is used for heartbeats and pong replies, which sit outside the
// exactly-one-terminal invariant (they never set terminalSent). Once a
// terminal event has gone out, sendRaw drops them.
func (s *Stream) sendRaw(t Type, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalSent {
		return
	}

	payload, err := json.Marshal(Envelope{Type: t, Ts: time.Now(), Data: data})
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	_ = s.conn.Write(writeCtx, websocket.MessageText, payload)
}

// Publisher is the narrow interface orchestrator stages depend on, so they
// can be tested without a real WebSocket connection.
type Publisher interface {
	Stage(ctx context.Context, name string, pct float64, detail string) error
	Partial(ctx context.Context, data any) error
	Complete(ctx context.Context, data any) error
	Error(ctx context.Context, kind, message string) error
}

// StreamPublisher implements Publisher over a Stream, timestamping every
// event at send time.
type StreamPublisher struct {
	stream *Stream
	nowFn  func() time.Time
}

// NewStreamPublisher builds a Publisher over a Stream.
func NewStreamPublisher(stream *Stream) *StreamPublisher {
	return &StreamPublisher{stream: stream, nowFn: time.Now}
}

func (p *StreamPublisher) Stage(ctx context.Context, name string, pct float64, detail string) error {
	return p.stream.Send(ctx, Envelope{Type: TypeStage, Ts: p.nowFn(), Data: StageData{Name: name, Pct: pct, Detail: detail}})
}

func (p *StreamPublisher) Partial(ctx context.Context, data any) error {
	return p.stream.Send(ctx, Envelope{Type: TypePartial, Ts: p.nowFn(), Data: data})
}

func (p *StreamPublisher) Complete(ctx context.Context, data any) error {
	return p.stream.Send(ctx, Envelope{Type: TypeComplete, Ts: p.nowFn(), Data: data})
}

func (p *StreamPublisher) Error(ctx context.Context, kind, message string) error {
	return p.stream.Send(ctx, Envelope{Type: TypeError, Ts: p.nowFn(), Data: ErrorData{Kind: kind, Message: message}})
}
