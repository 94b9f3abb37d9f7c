// Package orchestrator implements the Assembly and Crash orchestrators
// (§4.P): the top-level sequential flows that wire the Query Planner,
// Architecture Planner, Hybrid Retrieval, Final Selector, Dependency
// Resolver, Loader-Bridge Policy, Categorizer, Board Assembler and Crash
// Pipeline into the two request-handling pipelines the API exposes.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/modforge/assembly/pkg/bridge"
	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/config"
	"github.com/modforge/assembly/pkg/crash"
	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/planner"
	"github.com/modforge/assembly/pkg/quota"
	"github.com/modforge/assembly/pkg/resolver"
	"github.com/modforge/assembly/pkg/retrieval"
	"github.com/modforge/assembly/pkg/selector"
	"github.com/modforge/assembly/pkg/store"
)

// referencePackCount is the top-K reference-modpack lookup depth the
// Architecture Planner's Plan call grounds on (§4.G.1 "top-K=10").
const referencePackCount = 10

// ModStore is the subset of pkg/store.Store the orchestrators depend on
// directly (beyond what's already threaded through retrieval/resolver).
type ModStore interface {
	resolver.ModLookup
	ModpackVectorSearch(ctx context.Context, qEmbedding []float32, k int) ([]store.ModpackCandidate, error)
}

// Orchestrator wires every assembly/crash-analysis component together. One
// instance is shared across requests; all per-request state lives in the
// Tracer and event Stream each Run call is given.
type Orchestrator struct {
	queryPlanner *planner.QueryPlanner
	archPlanner  *planner.ArchitecturePlanner
	retriever    *retrieval.Retriever
	selector     *selector.Selector
	categorizer  *categorizer.Categorizer
	crashPipe    *crash.Pipeline

	modStore ModStore
	embedder embedder.Embedder
	quota    *quota.Gate
	bridge   config.BridgeDefaults
}

// Deps groups every collaborator New needs. All fields are required.
type Deps struct {
	QueryPlanner *planner.QueryPlanner
	ArchPlanner  *planner.ArchitecturePlanner
	Retriever    *retrieval.Retriever
	Selector     *selector.Selector
	Categorizer  *categorizer.Categorizer
	CrashPipe    *crash.Pipeline
	ModStore     ModStore
	Embedder     embedder.Embedder
	Quota        *quota.Gate
	Bridge       config.BridgeDefaults
}

// New builds an Orchestrator from its wired dependencies.
func New(d Deps) *Orchestrator {
	return &Orchestrator{
		queryPlanner: d.QueryPlanner,
		archPlanner:  d.ArchPlanner,
		retriever:    d.Retriever,
		selector:     d.Selector,
		categorizer:  d.Categorizer,
		crashPipe:    d.CrashPipe,
		modStore:     d.ModStore,
		embedder:     d.Embedder,
		quota:        d.Quota,
		bridge:       d.Bridge,
	}
}

// stageError carries the error-event kind emitted when a named stage fails (§4.P
// "emit error with the failing stage's kind").
type stageError struct {
	kind string
	err  error
}

func (e *stageError) Error() string { return fmt.Sprintf("orchestrator: %s: %v", e.kind, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func fail(kind string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{kind: kind, err: err}
}

// publishStage emits a stage progress event, swallowing the publish error:
// a dropped progress frame must never abort the pipeline itself.
func publishStage(ctx context.Context, pub events.Publisher, name string, pct float64, detail string) {
	if pub == nil {
		return
	}
	_ = pub.Stage(ctx, name, pct, detail)
}

// publishComplete emits the single terminal `complete` event (§4.N "exactly
// one terminal event").
func publishComplete(ctx context.Context, pub events.Publisher, data any) {
	if pub == nil {
		return
	}
	_ = pub.Complete(ctx, data)
}

// publishError emits the single terminal `error` event.
func publishError(ctx context.Context, pub events.Publisher, kind, message string) {
	if pub == nil {
		return
	}
	_ = pub.Error(ctx, kind, message)
}

// publishErrorFor emits a terminal error event for err, using its stage kind
// when err is a *stageError and "internal" otherwise (§4.P "emit error with
// the failing stage's kind").
func publishErrorFor(ctx context.Context, pub events.Publisher, err error) {
	if se, ok := err.(*stageError); ok {
		publishError(ctx, pub, se.kind, se.Error())
		return
	}
	publishError(ctx, pub, "internal", err.Error())
}

// modsBySourceID indexes a slice of mods for O(1) lookup during board
// assembly and bridge/resolver post-processing.
func modsBySourceID(mods []models.Mod) map[string]models.Mod {
	out := make(map[string]models.Mod, len(mods))
	for _, m := range mods {
		out[m.SourceID] = m
	}
	return out
}

// bridgeRules adapts the config-level defaults into pkg/bridge's data table.
func bridgeRules(d config.BridgeDefaults) bridge.Rules {
	return bridge.Rules{
		ForbiddenOnForgeLike: d.ForbiddenOnForgeLike,
		BridgeSet:            d.BridgeSet,
		LoaderEquivalents:    d.LoaderEquivalents,
	}
}
