package planner_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/planner"
)

type fakeProvider struct {
	json string
}

func (f fakeProvider) Generate(_ context.Context, _ llmgw.ProviderRequest) (llmgw.ProviderResponse, error) {
	return llmgw.ProviderResponse{JSONText: f.json, Usage: llmgw.TokenUsage{InputTokens: 10, OutputTokens: 10}}, nil
}

func gatewayWith(t *testing.T, jsonOut any) *llmgw.Gateway {
	t.Helper()
	raw, err := json.Marshal(jsonOut)
	require.NoError(t, err)
	return llmgw.New(fakeProvider{json: string(raw)}, slog.Default())
}

func TestQueryPlanner_SimpleAddWhenFewMods(t *testing.T) {
	gw := gatewayWith(t, map[string]any{
		"search_queries": []map[string]any{
			{"kind": "keyword", "text": "sodium", "weight": 1.0},
			{"kind": "semantic", "text": "rendering performance", "weight": 0.5},
			{"kind": "keyword", "text": "lithium", "weight": 1.0},
		},
	})
	qp := planner.NewQueryPlanner(gw)

	plan, _, _, err := qp.Plan(context.Background(), planner.Request{
		RawPrompt: "add sodium and lithium", MCVersion: "1.20.1", ModLoader: "fabric", MaxMods: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestSimpleAdd, plan.RequestType)
	assert.False(t, plan.UseArchitecturePlanner)
}

func TestQueryPlanner_ThemedPackWhenLargeAndTopical(t *testing.T) {
	gw := gatewayWith(t, map[string]any{
		"search_queries": []map[string]any{
			{"kind": "semantic", "text": "medieval fantasy building", "weight": 1.0},
			{"kind": "keyword", "text": "castles", "weight": 0.8},
			{"kind": "semantic", "text": "blacksmithing tools", "weight": 0.6},
		},
	})
	qp := planner.NewQueryPlanner(gw)

	plan, _, _, err := qp.Plan(context.Background(), planner.Request{
		RawPrompt: "build a sprawling medieval fantasy kingdom pack", MaxMods: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestThemedPack, plan.RequestType)
	assert.True(t, plan.UseArchitecturePlanner)
}

func TestQueryPlanner_PerformanceWhenNoTheme(t *testing.T) {
	gw := gatewayWith(t, map[string]any{
		"search_queries": []map[string]any{
			{"kind": "semantic", "text": "fps boost optimization mods", "weight": 1.0},
			{"kind": "keyword", "text": "sodium lithium", "weight": 0.7},
			{"kind": "semantic", "text": "reduce memory usage", "weight": 0.5},
		},
	})
	qp := planner.NewQueryPlanner(gw)

	plan, _, _, err := qp.Plan(context.Background(), planner.Request{
		RawPrompt: "I want better fps and less lag, no specific theme", MaxMods: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPerformance, plan.RequestType)
}

func TestQueryPlanner_FillsOutQueryCountFloor(t *testing.T) {
	gw := gatewayWith(t, map[string]any{
		"search_queries": []map[string]any{
			{"kind": "keyword", "text": "one query only", "weight": 1.0},
		},
	})
	qp := planner.NewQueryPlanner(gw)

	plan, _, _, err := qp.Plan(context.Background(), planner.Request{RawPrompt: "anything", MaxMods: 10})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(plan.SearchQueries), 3)
}
