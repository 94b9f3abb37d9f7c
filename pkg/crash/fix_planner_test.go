package crash_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/crash"
	"github.com/modforge/assembly/pkg/models"
)

type fakeRegistry struct {
	exists      map[string]bool
	compatible  map[string]bool
	existsErr   error
}

func (f fakeRegistry) ModExists(_ context.Context, sourceID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists[sourceID], nil
}

func (f fakeRegistry) HasCompatibleVersion(_ context.Context, sourceID, _, _ string) (bool, error) {
	return f.compatible[sourceID], nil
}

func planBoard() models.BoardState {
	return models.BoardState{Mods: []models.BoardMod{
		{SourceID: "sodium", Slug: "sodium", Title: "Sodium", UniqueID: "u1"},
	}}
}

func TestFixPlanner_PromotesValidatedRemoveSuggestion(t *testing.T) {
	registry := fakeRegistry{exists: map[string]bool{"sodium": true}}
	fp := crash.NewFixPlanner(registry)

	ops, warnings := fp.Plan(context.Background(), planBoard(), "fabric", "1.20.1", []models.SuggestedFix{
		{Action: models.OpRemoveMod, TargetMod: "Sodium", Reason: "conflicts", Priority: models.PriorityHigh},
	})
	require.Empty(t, warnings)
	require.Len(t, ops, 1)
	assert.Equal(t, "sodium", ops[0].Target)
	assert.Equal(t, models.PriorityHigh, ops[0].Priority)
}

func TestFixPlanner_UnknownModBecomesWarningNotOperation(t *testing.T) {
	registry := fakeRegistry{exists: map[string]bool{}}
	fp := crash.NewFixPlanner(registry)

	ops, warnings := fp.Plan(context.Background(), planBoard(), "fabric", "1.20.1", []models.SuggestedFix{
		{Action: models.OpRemoveMod, TargetMod: "ghost-mod", Reason: "bogus"},
	})
	assert.Empty(t, ops)
	require.Len(t, warnings, 1)
}

func TestFixPlanner_AddModRequiresCompatibleVersion(t *testing.T) {
	registry := fakeRegistry{
		exists:     map[string]bool{"new-mod": true},
		compatible: map[string]bool{"new-mod": false},
	}
	fp := crash.NewFixPlanner(registry)

	ops, warnings := fp.Plan(context.Background(), planBoard(), "forge", "1.19.2", []models.SuggestedFix{
		{Action: models.OpAddMod, TargetMod: "new-mod", Reason: "fixes crash"},
	})
	assert.Empty(t, ops)
	require.Len(t, warnings, 1)
}

func TestFixPlanner_RegistryUnavailableDegradesToWarning(t *testing.T) {
	registry := fakeRegistry{existsErr: errors.New("registry unavailable")}
	fp := crash.NewFixPlanner(registry)

	ops, warnings := fp.Plan(context.Background(), planBoard(), "fabric", "1.20.1", []models.SuggestedFix{
		{Action: models.OpDisableMod, TargetMod: "sodium"},
	})
	assert.Empty(t, ops)
	require.Len(t, warnings, 1)
}

func TestFixPlanner_ClearLoaderCacheSkipsRegistryValidation(t *testing.T) {
	registry := fakeRegistry{}
	fp := crash.NewFixPlanner(registry)

	ops, warnings := fp.Plan(context.Background(), planBoard(), "fabric", "1.20.1", []models.SuggestedFix{
		{Action: models.OpClearLoaderCache, Reason: "stale cache"},
	})
	assert.Empty(t, warnings)
	require.Len(t, ops, 1)
}
