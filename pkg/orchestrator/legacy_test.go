package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/orchestrator"
)

func TestRunLegacySearch_CapsAtTenRegardlessOfRequest(t *testing.T) {
	mods := make(map[string]models.Mod, 20)
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		mods[id] = models.Mod{SourceID: id, Name: id}
	}
	fs := &fakeStore{mods: mods}

	o := orchestrator.New(orchestrator.Deps{})
	result, err := o.RunLegacySearch(context.Background(), fs, orchestrator.LegacySearchRequest{
		Query:   "anything",
		MaxMods: 9999,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.LessOrEqual(t, len(result.BoardState.Mods), 10)
}

func TestRunLegacySearch_DefaultsWhenMaxModsUnset(t *testing.T) {
	fs := &fakeStore{mods: map[string]models.Mod{
		"sodium": {SourceID: "sodium", Name: "Sodium"},
	}}

	o := orchestrator.New(orchestrator.Deps{})
	result, err := o.RunLegacySearch(context.Background(), fs, orchestrator.LegacySearchRequest{Query: "sodium"})
	require.NoError(t, err)
	require.Len(t, result.BoardState.Mods, 1)
	assert.Equal(t, "sodium", result.BoardState.Mods[0].SourceID)
}
