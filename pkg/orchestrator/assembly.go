package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/board"
	"github.com/modforge/assembly/pkg/bridge"
	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/planner"
	"github.com/modforge/assembly/pkg/quota"
	"github.com/modforge/assembly/pkg/resolver"
	"github.com/modforge/assembly/pkg/retrieval"
	"github.com/modforge/assembly/pkg/selector"
	"github.com/modforge/assembly/pkg/tracer"
)

// AssemblyRequest is POST /api/ai/build-board's decoded body plus the
// authenticated caller (§6).
type AssemblyRequest struct {
	UserID           string
	Prompt           string
	MCVersion        string
	ModLoader        string
	MaxMods          int
	CurrentMods      []string
	ProjectID        string
	FabricCompatMode bool
}

// AssemblyStats summarizes what each stage contributed, surfaced in the
// terminal complete payload's `stats` field (§6).
type AssemblyStats struct {
	RequestType         models.RequestType `json:"request_type"`
	CandidatesRetrieved int                `json:"candidates_retrieved"`
	Selected            int                `json:"selected"`
	DependenciesAdded   int                `json:"dependencies_added"`
	Conflicts           int                `json:"conflicts"`
	BridgeRemoved       int                `json:"bridge_removed"`
	BridgeAdded         int                `json:"bridge_added"`
	BridgeSubstituted   int                `json:"bridge_substituted"`
}

// AssemblyResult is the terminal `complete` payload for a build-board
// request (§6 "{success, build_id, board_state, summary, explanation, stats}").
type AssemblyResult struct {
	Success     bool                  `json:"success"`
	BuildID     string                `json:"build_id"`
	BoardState  models.BoardState     `json:"board_state"`
	Summary     string                `json:"summary"`
	Explanation string                `json:"explanation"`
	Stats       AssemblyStats         `json:"stats"`
	Conflicts   []resolver.Conflict   `json:"conflicts,omitempty"`
	Unresolved  []resolver.Unresolved `json:"unresolved,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	Pipeline    tracer.Tracer         `json:"_pipeline"`
}

// RunAssembly executes the build-board pipeline (§4.P): the themed-flow
// sequence when the Query Planner routes to it, the simple sequence
// otherwise. tr accumulates stage/LLM timings; pub, if non-nil, receives
// ordered progress events and exactly one terminal event.
func (o *Orchestrator) RunAssembly(ctx context.Context, req AssemblyRequest, tr *tracer.Tracer, pub events.Publisher) (AssemblyResult, error) {
	user, err := o.quota.Check(ctx, req.UserID, req.MaxMods)
	if err != nil {
		err = quotaFail(err)
		publishErrorFor(ctx, pub, err)
		return AssemblyResult{}, err
	}

	_, result, err := o.runAssemblyPipeline(ctx, req, tr, pub)
	if err != nil {
		publishErrorFor(ctx, pub, err)
		return AssemblyResult{}, err
	}

	snapshot := tr.Snapshot()
	if err := o.quota.RecordSuccess(ctx, user.ID, snapshot.Totals.Tokens); err != nil {
		err = fail("quota_record", err)
		publishErrorFor(ctx, pub, err)
		return AssemblyResult{}, err
	}
	result.Pipeline = snapshot
	publishComplete(ctx, pub, result)
	return result, nil
}

func (o *Orchestrator) runAssemblyPipeline(ctx context.Context, req AssemblyRequest, tr *tracer.Tracer, pub events.Publisher) (models.SearchPlan, AssemblyResult, error) {
	var plan models.SearchPlan
	err := tr.StageFunc("query_planner", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		plan, usage, cost, e = o.queryPlanner.Plan(ctx, planner.Request{
			RawPrompt:   req.Prompt,
			MCVersion:   req.MCVersion,
			ModLoader:   req.ModLoader,
			CurrentMods: req.CurrentMods,
			MaxMods:     req.MaxMods,
		})
		tr.RecordLLMCall("query_planner", usage, cost)
		return e
	})
	if err != nil {
		return plan, AssemblyResult{}, fail("query_planner", err)
	}
	publishStage(ctx, pub, "query_planner", 0.1, string(plan.RequestType))

	if plan.UseArchitecturePlanner {
		return plan, o.runThemedFlow(ctx, req, plan, tr, pub)
	}
	res, err := o.runSimpleFlow(ctx, req, plan, tr, pub)
	return plan, res, err
}

// runSimpleFlow implements §4.P's simple sequence: Query Planner →
// Hybrid Retrieval → Final Selector → Dependency Resolver →
// Loader-Bridge Policy → Categorizer → Board Assembler.
func (o *Orchestrator) runSimpleFlow(ctx context.Context, req AssemblyRequest, plan models.SearchPlan, tr *tracer.Tracer, pub events.Publisher) (AssemblyResult, error) {
	var retrieved []retrieval.Result
	if err := tr.StageFunc("retrieval", func() error {
		var e error
		retrieved, e = o.retriever.Retrieve(ctx, plan, retrieval.Target{Loader: req.ModLoader, GameVersion: req.MCVersion})
		return e
	}); err != nil {
		return AssemblyResult{}, fail("retrieval", err)
	}
	publishStage(ctx, pub, "retrieval", 0.3, fmt.Sprintf("%d candidates", len(retrieved)))

	pool := make([]models.Mod, len(retrieved))
	for i, r := range retrieved {
		pool[i] = r.Mod
	}

	var selections []models.SelectedMod
	if err := tr.StageFunc("selector", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		selections, usage, cost, e = o.selector.Select(ctx, models.PlannedArchitecture{}, pool, req.MaxMods)
		tr.RecordLLMCall("selector", usage, cost)
		return e
	}); err != nil {
		return AssemblyResult{}, fail("selector", err)
	}
	publishStage(ctx, pub, "selector", 0.45, fmt.Sprintf("%d selected", len(selections)))

	poolByID := modsBySourceID(pool)
	selectedMods := selectedModsFrom(selections, poolByID)

	resolved, err := o.runResolveAndBridge(ctx, req, selectedMods, tr, pub)
	if err != nil {
		return AssemblyResult{}, err
	}

	var cats map[string]categorizer.Category
	if err := tr.StageFunc("categorizer", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		cats, usage, cost, e = o.categorizer.Categorize(ctx, resolved.finalMods)
		tr.RecordLLMCall("categorizer", usage, cost)
		return e
	}); err != nil {
		return AssemblyResult{}, fail("categorizer", err)
	}
	publishStage(ctx, pub, "categorizer", 0.75, "")

	categoryInputs := simpleCategoryInputs(cats, resolved.finalMods)
	res, err := o.assembleResult(req, plan, resolved, categoryInputs, tr)
	if err == nil {
		res.Stats.CandidatesRetrieved = len(retrieved)
	}
	return res, err
}

// runThemedFlow implements §4.P's themed sequence: Query Planner → Mod
// Store modpack search → Architecture Planner (plan) → Hybrid Retrieval →
// Final Selector → Dependency Resolver → Loader-Bridge Policy →
// Architecture Planner (refine) → Board Assembler.
func (o *Orchestrator) runThemedFlow(ctx context.Context, req AssemblyRequest, plan models.SearchPlan, tr *tracer.Tracer, pub events.Publisher) (AssemblyResult, error) {
	var referencePacks []models.Modpack
	if err := tr.StageFunc("modpack_search", func() error {
		vec, e := o.embedder.Embed(ctx, req.Prompt)
		if e != nil {
			return e
		}
		candidates, e := o.modStore.ModpackVectorSearch(ctx, vec, referencePackCount)
		if e != nil {
			return e
		}
		for _, c := range candidates {
			referencePacks = append(referencePacks, c.Modpack)
		}
		return nil
	}); err != nil {
		return AssemblyResult{}, fail("modpack_search", err)
	}
	publishStage(ctx, pub, "modpack_search", 0.2, fmt.Sprintf("%d reference packs", len(referencePacks)))

	var arch models.PlannedArchitecture
	if err := tr.StageFunc("architecture_plan", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		arch, _, usage, cost, e = o.archPlanner.Plan(ctx, planner.PlanInput{
			Prompt:            req.Prompt,
			MaxMods:           req.MaxMods,
			ReferenceModpacks: referencePacks,
		})
		tr.RecordLLMCall("architecture_plan", usage, cost)
		return e
	}); err != nil {
		return AssemblyResult{}, fail("architecture_plan", err)
	}
	publishStage(ctx, pub, "architecture_plan", 0.35, arch.PackArchetype)

	var retrieved []retrieval.Result
	if err := tr.StageFunc("retrieval", func() error {
		var e error
		retrieved, e = o.retriever.Retrieve(ctx, plan, retrieval.Target{Loader: req.ModLoader, GameVersion: req.MCVersion})
		return e
	}); err != nil {
		return AssemblyResult{}, fail("retrieval", err)
	}
	publishStage(ctx, pub, "retrieval", 0.5, fmt.Sprintf("%d candidates", len(retrieved)))

	candidates := make([]models.Mod, len(retrieved))
	for i, r := range retrieved {
		candidates[i] = r.Mod
	}
	prefiltered := selectorPreFilterMods(candidates, arch)

	var selections []models.SelectedMod
	if err := tr.StageFunc("selector", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		selections, usage, cost, e = o.selector.Select(ctx, arch, prefiltered, req.MaxMods)
		tr.RecordLLMCall("selector", usage, cost)
		return e
	}); err != nil {
		return AssemblyResult{}, fail("selector", err)
	}
	publishStage(ctx, pub, "selector", 0.6, fmt.Sprintf("%d selected", len(selections)))

	poolByID := modsBySourceID(candidates)
	selectedMods := selectedModsFrom(selections, poolByID)

	resolved, err := o.runResolveAndBridge(ctx, req, selectedMods, tr, pub)
	if err != nil {
		return AssemblyResult{}, err
	}

	var refined models.PlannedArchitecture
	if err := tr.StageFunc("architecture_refine", func() error {
		var e error
		var usage llmgw.TokenUsage
		var cost float64
		refined, usage, cost, e = o.archPlanner.Refine(ctx, planner.RefineInput{
			Initial:  arch,
			Selected: selections,
			ModsByID: modsBySourceID(resolved.finalMods),
		})
		tr.RecordLLMCall("architecture_refine", usage, cost)
		return e
	}); err != nil {
		return AssemblyResult{}, fail("architecture_refine", err)
	}
	publishStage(ctx, pub, "architecture_refine", 0.85, "")

	categoryInputs := themedCategoryInputs(refined, resolved.finalMods)
	res, err := o.assembleResult(req, plan, resolved, categoryInputs, tr)
	if err == nil {
		res.Stats.RequestType = plan.RequestType
		res.Stats.CandidatesRetrieved = len(retrieved)
	}
	return res, err
}

// resolvedSet is the Dependency Resolver + Loader-Bridge Policy's combined
// output: the final mod set a board is assembled from.
type resolvedSet struct {
	finalMods         []models.Mod
	dependenciesAdded int
	conflicts         []resolver.Conflict
	unresolved        []resolver.Unresolved
	outcome           bridge.Outcome
}

// runResolveAndBridge runs the Dependency Resolver followed by the
// Loader-Bridge Policy, both shared verbatim between the themed and simple
// flows (§4.P).
func (o *Orchestrator) runResolveAndBridge(ctx context.Context, req AssemblyRequest, selected []models.Mod, tr *tracer.Tracer, pub events.Publisher) (resolvedSet, error) {
	var resolveResult resolver.Result
	if err := tr.StageFunc("resolver", func() error {
		var e error
		resolveResult, e = resolver.Resolve(ctx, o.modStore, selected, req.ModLoader, req.MCVersion)
		return e
	}); err != nil {
		return resolvedSet{}, fail("resolver", err)
	}
	publishStage(ctx, pub, "resolver", 0.65, fmt.Sprintf("%d dependencies added", len(resolveResult.AddedDependencies)))

	combined := append(append([]models.Mod(nil), selected...), resolveResult.AddedDependencies...)

	var bridged []models.Mod
	var outcome bridge.Outcome
	if err := tr.StageFunc("bridge", func() error {
		bridged, outcome = bridge.Apply(combined, req.ModLoader, req.FabricCompatMode, bridgeRules(o.bridge))
		return nil
	}); err != nil {
		return resolvedSet{}, fail("bridge", err)
	}
	publishStage(ctx, pub, "bridge", 0.7, fmt.Sprintf("%d removed, %d bridged", len(outcome.Removed), len(outcome.BridgeAdded)))

	return resolvedSet{
		finalMods:         bridged,
		dependenciesAdded: len(resolveResult.AddedDependencies),
		conflicts:         resolveResult.Conflicts,
		unresolved:        resolveResult.Unresolved,
		outcome:           outcome,
	}, nil
}

func (o *Orchestrator) assembleResult(req AssemblyRequest, plan models.SearchPlan, resolved resolvedSet, categoryInputs []board.CategoryInput, tr *tracer.Tracer) (AssemblyResult, error) {
	projectID := req.ProjectID
	if projectID == "" {
		projectID = uuid.NewString()
	}

	var boardState models.BoardState
	if err := tr.StageFunc("board_assembler", func() error {
		boardState = board.Assemble(projectID, categoryInputs, time.Now())
		return nil
	}); err != nil {
		return AssemblyResult{}, fail("board_assembler", err)
	}

	return AssemblyResult{
		Success:    true,
		BuildID:    uuid.NewString(),
		BoardState: boardState,
		Summary:    fmt.Sprintf("Assembled %d mods across %d categories.", len(boardState.Mods), len(boardState.Categories)),
		Explanation: fmt.Sprintf(
			"request classified as %s; %d dependencies resolved, %d conflicts detected, %d mods removed by loader-bridge policy, %d bridge mods added.",
			plan.RequestType, resolved.dependenciesAdded, len(resolved.conflicts), len(resolved.outcome.Removed), len(resolved.outcome.BridgeAdded),
		),
		Stats: AssemblyStats{
			RequestType:         plan.RequestType,
			Selected:            len(boardState.Mods),
			DependenciesAdded:   resolved.dependenciesAdded,
			Conflicts:           len(resolved.conflicts),
			BridgeRemoved:       len(resolved.outcome.Removed),
			BridgeAdded:         len(resolved.outcome.BridgeAdded),
			BridgeSubstituted:   len(resolved.outcome.Substituted),
		},
		Conflicts:  resolved.conflicts,
		Unresolved: resolved.unresolved,
	}, nil
}

func selectedModsFrom(selections []models.SelectedMod, poolByID map[string]models.Mod) []models.Mod {
	out := make([]models.Mod, 0, len(selections))
	for _, sel := range selections {
		if m, ok := poolByID[sel.SourceID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// selectorPreFilterMods flattens selector.PreFilter's Scored results back
// into a plain mod pool, preserving score order.
func selectorPreFilterMods(candidates []models.Mod, arch models.PlannedArchitecture) []models.Mod {
	scored := selector.PreFilter(candidates, arch)
	out := make([]models.Mod, len(scored))
	seen := make(map[string]bool, len(scored))
	n := 0
	for _, s := range scored {
		if seen[s.Mod.SourceID] {
			continue
		}
		seen[s.Mod.SourceID] = true
		out[n] = s.Mod
		n++
	}
	return out[:n]
}

func quotaFail(err error) error {
	if rejected, ok := err.(*quota.Rejected); ok {
		return fail(string(rejected.Reason), rejected)
	}
	return fail("quota", err)
}
