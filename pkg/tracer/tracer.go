// Package tracer implements the Pipeline Tracer (§4.O): a per-request
// accumulator of stage timings and LLM call costs, attached to the final
// payload as `_pipeline`. It never drives orchestration behavior.
package tracer

import (
	"sync"
	"time"

	"github.com/modforge/assembly/pkg/llmgw"
)

// StageTrace records one orchestrator stage's timing and outcome.
type StageTrace struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	OK        bool      `json:"ok"`
}

// LLMCallTrace records one completed LLM Gateway call.
type LLMCallTrace struct {
	Name        string  `json:"name"`
	TokensIn    int     `json:"tokens_in"`
	TokensOut   int     `json:"tokens_out"`
	CostUSD     float64 `json:"cost_usd"`
}

// Totals aggregates every LLMCallTrace recorded so far.
type Totals struct {
	Tokens  int     `json:"tokens"`
	CostUSD float64 `json:"cost_usd"`
}

// Tracer accumulates stage and LLM call traces for a single request. Safe
// for concurrent use since stages within a request may fan out internally
// (§5 bounded parallelism within a stage).
type Tracer struct {
	mu         sync.Mutex
	PipelineID string         `json:"pipeline_id"`
	Stages     []StageTrace   `json:"stages"`
	LLMCalls   []LLMCallTrace `json:"llm_calls"`
	Totals     Totals         `json:"totals"`
}

// New constructs a Tracer for one request's pipeline_id.
func New(pipelineID string) *Tracer {
	return &Tracer{PipelineID: pipelineID}
}

// StageFunc wraps fn, recording its start/end time and success into the
// tracer regardless of the wrapped error.
func (t *Tracer) StageFunc(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.mu.Lock()
	t.Stages = append(t.Stages, StageTrace{
		Name:      name,
		StartedAt: start,
		EndedAt:   time.Now(),
		OK:        err == nil,
	})
	t.mu.Unlock()
	return err
}

// RecordLLMCall appends one completed LLM Gateway call to the trace and
// updates running totals.
func (t *Tracer) RecordLLMCall(name string, usage llmgw.TokenUsage, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LLMCalls = append(t.LLMCalls, LLMCallTrace{
		Name:      name,
		TokensIn:  usage.InputTokens,
		TokensOut: usage.OutputTokens,
		CostUSD:   costUSD,
	})
	t.Totals.Tokens += usage.Total()
	t.Totals.CostUSD += costUSD
}

// Snapshot returns a value copy safe to attach to a response payload as
// `_pipeline` without further locking by the caller.
func (t *Tracer) Snapshot() Tracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Tracer{
		PipelineID: t.PipelineID,
		Stages:     append([]StageTrace(nil), t.Stages...),
		LLMCalls:   append([]LLMCallTrace(nil), t.LLMCalls...),
		Totals:     t.Totals,
	}
}
