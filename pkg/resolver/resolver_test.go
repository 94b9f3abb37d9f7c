package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/resolver"
)

type fakeStore struct {
	mods map[string]models.Mod
}

func (f fakeStore) GetModsByProjectIDs(_ context.Context, ids []string) (map[string]models.Mod, error) {
	out := make(map[string]models.Mod, len(ids))
	for _, id := range ids {
		if m, ok := f.mods[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func baseFixture() fakeStore {
	return fakeStore{mods: map[string]models.Mod{
		"sodium": {
			SourceID: "sodium", Loaders: []string{"fabric"}, GameVersions: []string{"1.21.1"},
			Dependencies: []models.Dependency{{ProjectID: "fabric-api", DependencyType: models.DependencyRequired}},
		},
		"fabric-api": {
			SourceID: "fabric-api", Loaders: []string{"fabric"}, GameVersions: []string{"1.21.1"},
		},
		"create": {
			SourceID: "create", Loaders: []string{"forge"}, GameVersions: []string{"1.20.1"},
			Incompatibilities: map[string][]string{"forge": {"flywheel-conflict"}},
		},
		"flywheel-conflict": {
			SourceID: "flywheel-conflict", Loaders: []string{"forge"}, GameVersions: []string{"1.20.1"},
		},
	}}
}

func TestResolve_BFSClosureAddsTransitiveRequiredDeps(t *testing.T) {
	store := baseFixture()
	result, err := resolver.Resolve(context.Background(), store,
		[]models.Mod{store.mods["sodium"]}, "fabric", "1.21.1")
	require.NoError(t, err)

	require.Len(t, result.AddedDependencies, 1)
	assert.Equal(t, "fabric-api", result.AddedDependencies[0].SourceID)
	assert.Empty(t, result.Unresolved)
}

func TestResolve_MissingDependencyReportedUnresolved(t *testing.T) {
	store := fakeStore{mods: map[string]models.Mod{
		"sodium": {
			SourceID: "sodium", Loaders: []string{"fabric"}, GameVersions: []string{"1.21.1"},
			Dependencies: []models.Dependency{{ProjectID: "fabric-api", DependencyType: models.DependencyRequired}},
		},
	}}
	result, err := resolver.Resolve(context.Background(), store,
		[]models.Mod{store.mods["sodium"]}, "fabric", "1.21.1")
	require.NoError(t, err)

	assert.Empty(t, result.AddedDependencies)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "fabric-api", result.Unresolved[0].SourceID)
}

func TestResolve_BidirectionalIncompatibilityDetected(t *testing.T) {
	store := baseFixture()
	result, err := resolver.Resolve(context.Background(), store,
		[]models.Mod{store.mods["create"], store.mods["flywheel-conflict"]}, "forge", "1.20.1")
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 1)
	assert.ElementsMatch(t, []string{"create", "flywheel-conflict"},
		[]string{result.Conflicts[0].A, result.Conflicts[0].B})
}

func TestResolve_IsIdempotent(t *testing.T) {
	store := baseFixture()
	first, err := resolver.Resolve(context.Background(), store,
		[]models.Mod{store.mods["sodium"]}, "fabric", "1.21.1")
	require.NoError(t, err)

	combined := append([]models.Mod{store.mods["sodium"]}, first.AddedDependencies...)
	second, err := resolver.Resolve(context.Background(), store, combined, "fabric", "1.21.1")
	require.NoError(t, err)

	assert.Empty(t, second.AddedDependencies, "resolving an already-closed set must add nothing further")
}

func TestResolve_CycleSafe(t *testing.T) {
	store := fakeStore{mods: map[string]models.Mod{
		"a": {SourceID: "a", Loaders: []string{"fabric"}, GameVersions: []string{"1.21.1"},
			Dependencies: []models.Dependency{{ProjectID: "b", DependencyType: models.DependencyRequired}}},
		"b": {SourceID: "b", Loaders: []string{"fabric"}, GameVersions: []string{"1.21.1"},
			Dependencies: []models.Dependency{{ProjectID: "a", DependencyType: models.DependencyRequired}}},
	}}

	done := make(chan struct{})
	go func() {
		_, err := resolver.Resolve(context.Background(), store, []models.Mod{store.mods["a"]}, "fabric", "1.21.1")
		require.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done
}
