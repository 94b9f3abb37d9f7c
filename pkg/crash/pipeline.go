// Package crash implements the Crash Pipeline (§4.L): dedup cache,
// sanitizer, log validator, LLM analyzer, fix planner, board patcher, and
// session recorder, wired in the fixed stage order the spec prescribes.
package crash

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// Request is one crash-analysis call (§6 POST /api/ai/crash-doctor/analyze).
type Request struct {
	UserID    string
	CrashLog  string
	Board     models.BoardState
	MCVersion string
	ModLoader string
}

// Result is the terminal payload the API surfaces to the client.
type Result struct {
	Success           bool
	SessionID         string
	RootCause         string
	ErrorKind         models.ErrorKind
	Confidence        float64
	Suggestions       []models.Operation
	Warnings          []string
	PatchedBoardState models.BoardState
	TokenUsage        llmgw.TokenUsage
}

// Pipeline runs the fixed stage sequence of §4.L exactly.
type Pipeline struct {
	cache      *dedupCache
	analyzer   *Analyzer
	fixPlanner *FixPlanner
	recorder   Recorder
	idGen      func() string
	nowFn      func() time.Time
}

// New builds a Pipeline. dedupTTL is the cache's retention window (§4.L
// step 1, typically 1 hour per DEDUP_TTL_SECONDS).
func New(analyzer *Analyzer, fixPlanner *FixPlanner, recorder Recorder, dedupTTL time.Duration) *Pipeline {
	return &Pipeline{
		cache:      newDedupCache(dedupTTL),
		analyzer:   analyzer,
		fixPlanner: fixPlanner,
		recorder:   recorder,
		idGen:      uuid.NewString,
		nowFn:      time.Now,
	}
}

// Run executes the pipeline stage sequence in order: sanitizer, dedup cache
// (keyed on the sanitized, normalized log), log validator, analyzer, fix
// planner, board patcher, recorder.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	now := p.nowFn()

	sanitized := Sanitize(req.CrashLog)
	hash := DedupHash(sanitized.NormalizedText)
	key := cacheKey{userID: req.UserID, logMD5: hash}

	if cached, ok := p.cache.get(key, now); ok {
		return cached, nil
	}

	overlapRatio, staleWarnings := ValidateAgainstBoard(sanitized.ModListInLog, req.Board)

	diag, usage, _, err := p.analyzer.Analyze(ctx, sanitized, overlapRatio)
	if err != nil {
		return Result{}, fmt.Errorf("crash: pipeline: %w", err)
	}

	loader := req.ModLoader
	if loader == "" {
		loader = sanitized.ModLoader
	}
	mcVersion := req.MCVersion
	if mcVersion == "" {
		mcVersion = sanitized.MCVersion
	}

	operations, fixWarnings := p.fixPlanner.Plan(ctx, req.Board, loader, mcVersion, diag.SuggestedFixes)
	patched := PatchBoard(req.Board, operations)

	warnings := append(append([]string(nil), staleWarnings...), fixWarnings...)

	result := Result{
		Success:           true,
		SessionID:         p.idGen(),
		RootCause:         diag.RootCause,
		ErrorKind:         diag.ErrorKind,
		Confidence:        diag.Confidence,
		Suggestions:       operations,
		Warnings:          warnings,
		PatchedBoardState: patched,
		TokenUsage:        usage,
	}

	session := models.CrashSession{
		ID:                 result.SessionID,
		UserID:             req.UserID,
		CrashLogSanitized:  sanitized.StackTrace,
		BoardStateSnapshot: req.Board,
		RootCause:          result.RootCause,
		ErrorKind:          result.ErrorKind,
		Confidence:         result.Confidence,
		Suggestions:        result.Suggestions,
		Warnings:           result.Warnings,
		PatchedBoardState:  result.PatchedBoardState,
		TokenUsage:         usage.Total(),
		CreatedAt:          now,
	}
	if err := p.recorder.RecordCrashSession(ctx, session); err != nil {
		return Result{}, fmt.Errorf("crash: pipeline: record session: %w", err)
	}

	p.cache.set(key, result, now)
	return result, nil
}
