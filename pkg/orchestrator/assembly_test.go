package orchestrator_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/config"
	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/orchestrator"
	"github.com/modforge/assembly/pkg/planner"
	"github.com/modforge/assembly/pkg/quota"
	"github.com/modforge/assembly/pkg/retrieval"
	"github.com/modforge/assembly/pkg/selector"
	"github.com/modforge/assembly/pkg/store"
	"github.com/modforge/assembly/pkg/tracer"
)

type fakeProvider struct{ json string }

func (f fakeProvider) Generate(_ context.Context, _ llmgw.ProviderRequest) (llmgw.ProviderResponse, error) {
	return llmgw.ProviderResponse{JSONText: f.json, Usage: llmgw.TokenUsage{InputTokens: 8, OutputTokens: 8}}, nil
}

func gatewayWith(t *testing.T, out any) *llmgw.Gateway {
	t.Helper()
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return llmgw.New(fakeProvider{json: string(raw)}, slog.Default())
}

// fakeStore satisfies retrieval.Searcher, resolver.ModLookup and
// orchestrator.ModStore's ModpackVectorSearch over an in-memory mod set.
type fakeStore struct {
	mods     map[string]models.Mod
	modpacks []store.ModpackCandidate
}

func (f *fakeStore) VectorSearch(_ context.Context, _ []float32, filters store.Filters, _ int) ([]store.Candidate, error) {
	return f.search(filters)
}

func (f *fakeStore) KeywordSearch(_ context.Context, _ string, filters store.Filters, _ int) ([]store.Candidate, error) {
	return f.search(filters)
}

func (f *fakeStore) search(filters store.Filters) ([]store.Candidate, error) {
	var out []store.Candidate
	rank := 1
	for _, m := range f.mods {
		if filters.Loader != "" && !m.UsableUnder(filters.Loader) {
			continue
		}
		if filters.GameVersion != "" && !m.SupportsVersion(filters.GameVersion) {
			continue
		}
		out = append(out, store.Candidate{Mod: m, Rank: rank})
		rank++
	}
	return out, nil
}

func (f *fakeStore) GetModsByProjectIDs(_ context.Context, projectIDs []string) (map[string]models.Mod, error) {
	out := make(map[string]models.Mod, len(projectIDs))
	for _, id := range projectIDs {
		if m, ok := f.mods[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (f *fakeStore) ModpackVectorSearch(_ context.Context, _ []float32, _ int) ([]store.ModpackCandidate, error) {
	return f.modpacks, nil
}

type fakeQuotaStore struct{ user models.User }

func (f *fakeQuotaStore) GetUser(_ context.Context, _ string) (models.User, error) {
	return f.user, nil
}

func (f *fakeQuotaStore) UpdateCounters(_ context.Context, _ string, _ time.Time, _ int) error {
	return nil
}

type fakeTiers struct{}

func (fakeTiers) Get(models.Tier) (models.Limits, error) {
	return models.Limits{
		DailyRequests:     models.Unlimited,
		MonthlyRequests:   models.Unlimited,
		MaxModsPerRequest: models.Unlimited,
		AITokenLimit:      models.Unlimited,
	}, nil
}

func premiumUser() models.User {
	return models.User{ID: "user-1", SubscriptionTier: models.TierPremium}
}

func freeUser() models.User {
	return models.User{ID: "u", SubscriptionTier: models.TierFree}
}

func quotaGateFor(t *testing.T, user models.User) *quota.Gate {
	t.Helper()
	return quota.New(&fakeQuotaStore{user: user}, fakeTiers{}, func() time.Time {
		return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	})
}

func performanceMods() map[string]models.Mod {
	return map[string]models.Mod{
		"sodium": {
			SourceID: "sodium", Slug: "sodium", Name: "Sodium",
			Loaders: []string{"fabric"}, GameVersions: []string{"1.20.1"},
			Capabilities: []string{"performance"}, Downloads: 900000,
		},
		"lithium": {
			SourceID: "lithium", Slug: "lithium", Name: "Lithium",
			Loaders: []string{"fabric"}, GameVersions: []string{"1.20.1"},
			Capabilities: []string{"performance"}, Downloads: 500000,
		},
	}
}

func newOrchestrator(t *testing.T, mods map[string]models.Mod, selections []models.SelectedMod, categories map[string]string, user models.User) *orchestrator.Orchestrator {
	t.Helper()
	fs := &fakeStore{mods: mods}

	qp := planner.NewQueryPlanner(gatewayWith(t, map[string]any{
		"search_queries": []map[string]any{
			{"kind": "keyword", "text": "performance mods", "weight": 1.0},
			{"kind": "semantic", "text": "smooth fps fabric", "weight": 0.8},
			{"kind": "keyword", "text": "sodium lithium", "weight": 0.6},
		},
		"capabilities_focus": []string{"performance"},
		"baseline_mods":      []string{},
	}))

	sel := selector.New(gatewayWith(t, map[string]any{"selections": selections}))
	cat := categorizer.New(gatewayWith(t, map[string]any{"assignments": categories}))

	retriever := retrieval.New(fs, embedder.New(), 4)
	quotaGate := quota.New(&fakeQuotaStore{user: user}, fakeTiers{}, func() time.Time {
		return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	})

	return orchestrator.New(orchestrator.Deps{
		QueryPlanner: qp,
		Retriever:    retriever,
		Selector:     sel,
		Categorizer:  cat,
		ModStore:     fs,
		Embedder:     embedder.New(),
		Quota:        quotaGate,
		Bridge:       config.BridgeDefaults{},
	})
}

func TestRunAssembly_SimpleFlowAssemblesBoard(t *testing.T) {
	o := newOrchestrator(t, performanceMods(),
		[]models.SelectedMod{
			{SourceID: "sodium", Role: models.RolePrimary, Reason: "top performance pick"},
			{SourceID: "lithium", Role: models.RolePrimary, Reason: "complements sodium"},
		},
		map[string]string{"sodium": "Performance", "lithium": "Performance"},
		premiumUser(),
	)

	tr := tracer.New("pipeline-1")
	res, err := o.RunAssembly(context.Background(), orchestrator.AssemblyRequest{
		UserID:    "user-1",
		Prompt:    "I want better fps",
		MCVersion: "1.20.1",
		ModLoader: "fabric",
		MaxMods:   2,
	}, tr, nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, models.RequestSimpleAdd, res.Stats.RequestType)
	require.Len(t, res.BoardState.Mods, 2)
	require.Len(t, res.BoardState.Categories, 1)
	assert.Equal(t, "Performance", res.BoardState.Categories[0].Title)
	assert.NotZero(t, res.Pipeline.Totals.Tokens)
	// query_planner, retrieval, selector, resolver, bridge, categorizer, board_assembler.
	assert.Len(t, res.Pipeline.Stages, 7)
}

func TestRunAssembly_FreeTierRejectedBeforeAnyLLMCall(t *testing.T) {
	o := newOrchestrator(t, performanceMods(), nil, nil, models.User{ID: "u", SubscriptionTier: models.TierFree})

	tr := tracer.New("pipeline-2")
	_, err := o.RunAssembly(context.Background(), orchestrator.AssemblyRequest{
		UserID: "u", Prompt: "anything", MaxMods: 2,
	}, tr, nil)

	require.Error(t, err)
	assert.Empty(t, tr.Snapshot().Stages, "quota rejection must happen before any stage runs")
}

type recordingPublisher struct {
	stages   []string
	complete bool
	errKind  string
}

func (r *recordingPublisher) Stage(_ context.Context, name string, _ float64, _ string) error {
	r.stages = append(r.stages, name)
	return nil
}

func (r *recordingPublisher) Partial(_ context.Context, _ any) error { return nil }

func (r *recordingPublisher) Complete(_ context.Context, _ any) error {
	r.complete = true
	return nil
}

func (r *recordingPublisher) Error(_ context.Context, kind string, _ string) error {
	r.errKind = kind
	return nil
}

var _ events.Publisher = (*recordingPublisher)(nil)

func TestRunAssembly_EmitsStageEventsThenOneTerminalComplete(t *testing.T) {
	o := newOrchestrator(t, performanceMods(),
		[]models.SelectedMod{{SourceID: "sodium", Role: models.RolePrimary, Reason: "pick"}},
		map[string]string{"sodium": "Performance"},
		premiumUser(),
	)

	pub := &recordingPublisher{}
	tr := tracer.New("pipeline-3")
	_, err := o.RunAssembly(context.Background(), orchestrator.AssemblyRequest{
		UserID: "user-1", Prompt: "fps boost", MCVersion: "1.20.1", ModLoader: "fabric", MaxMods: 1,
	}, tr, pub)

	require.NoError(t, err)
	assert.True(t, pub.complete)
	assert.Empty(t, pub.errKind)
	assert.NotEmpty(t, pub.stages)
}
