package orchestrator

import (
	"context"

	"github.com/modforge/assembly/pkg/crash"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/tracer"
)

// CrashRequest is POST /api/ai/crash-doctor/analyze's decoded body plus the
// authenticated caller (§6).
type CrashRequest struct {
	UserID    string
	CrashLog  string
	Board     models.BoardState
	MCVersion string
	ModLoader string
}

// CrashResult is the terminal `complete` payload for a crash-analysis
// request (§6 "{success, suggestions, patched_board_state, warnings,
// confidence, session_id}").
type CrashResult struct {
	Success           bool                `json:"success"`
	SessionID         string              `json:"session_id"`
	RootCause         string              `json:"root_cause"`
	ErrorKind         models.ErrorKind    `json:"error_kind"`
	Confidence        float64             `json:"confidence"`
	Suggestions       []models.Operation  `json:"suggestions"`
	Warnings          []string            `json:"warnings,omitempty"`
	PatchedBoardState models.BoardState   `json:"patched_board_state"`
	Pipeline          tracer.Tracer       `json:"_pipeline"`
}

// RunCrash executes the Crash Pipeline exactly as §4.L prescribes (sanitizer,
// dedup cache, log validator, analyzer, fix planner, board patcher,
// recorder), wrapped with the same quota-gate-first and single-terminal-
// event discipline as RunAssembly (§4.P "Crash orchestrator follows §4.L
// exactly").
func (o *Orchestrator) RunCrash(ctx context.Context, req CrashRequest, tr *tracer.Tracer, pub events.Publisher) (CrashResult, error) {
	user, err := o.quota.Check(ctx, req.UserID, 0)
	if err != nil {
		err = quotaFail(err)
		publishErrorFor(ctx, pub, err)
		return CrashResult{}, err
	}

	publishStage(ctx, pub, "crash_pipeline", 0.2, "analyzing crash log")

	var pipeResult crash.Result
	if stageErr := tr.StageFunc("crash_pipeline", func() error {
		var e error
		pipeResult, e = o.crashPipe.Run(ctx, crash.Request{
			UserID:    req.UserID,
			CrashLog:  req.CrashLog,
			Board:     req.Board,
			MCVersion: req.MCVersion,
			ModLoader: req.ModLoader,
		})
		return e
	}); stageErr != nil {
		wrapped := fail("crash_pipeline", stageErr)
		publishErrorFor(ctx, pub, wrapped)
		return CrashResult{}, wrapped
	}
	publishStage(ctx, pub, "crash_pipeline", 0.9, "")

	if err := o.quota.RecordSuccess(ctx, user.ID, pipeResult.TokenUsage.Total()); err != nil {
		wrapped := fail("quota_record", err)
		publishErrorFor(ctx, pub, wrapped)
		return CrashResult{}, wrapped
	}

	result := CrashResult{
		Success:           pipeResult.Success,
		SessionID:         pipeResult.SessionID,
		RootCause:         pipeResult.RootCause,
		ErrorKind:         pipeResult.ErrorKind,
		Confidence:        pipeResult.Confidence,
		Suggestions:       pipeResult.Suggestions,
		Warnings:          pipeResult.Warnings,
		PatchedBoardState: pipeResult.PatchedBoardState,
		Pipeline:          tr.Snapshot(),
	}
	publishComplete(ctx, pub, result)
	return result, nil
}
