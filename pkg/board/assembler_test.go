package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedIDs(ids []string) idGen {
	i := 0
	return func() string {
		if i >= len(ids) {
			panic("fixedIDs: ran out of seeded ids")
		}
		v := ids[i]
		i++
		return v
	}
}

func TestAssemble_DeterministicGivenFixedUUIDSeeds(t *testing.T) {
	cats := []CategoryInput{
		{Title: "Performance", Mods: []ModPlacement{{SourceID: "sodium", Slug: "sodium"}, {SourceID: "lithium", Slug: "lithium"}}},
		{Title: "Libraries", Mods: []ModPlacement{{SourceID: "fabric-api", Slug: "fabric-api"}}},
	}
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	ids1 := []string{"cat-1", "mod-1", "mod-2", "cat-2", "mod-3"}
	ids2 := []string{"cat-1", "mod-1", "mod-2", "cat-2", "mod-3"}

	state1 := assembleWithIDs("proj", cats, now, fixedIDs(ids1))
	state2 := assembleWithIDs("proj", cats, now, fixedIDs(ids2))

	assert.Equal(t, state1, state2)
}

func TestAssemble_EveryBoardModReferencesExistingCategory(t *testing.T) {
	cats := []CategoryInput{
		{Title: "Performance", Mods: []ModPlacement{{SourceID: "sodium", Slug: "sodium"}}},
	}
	state := Assemble("proj", cats, time.Now())

	catIDs := make(map[string]bool)
	for _, c := range state.Categories {
		catIDs[c.ID] = true
	}
	for _, m := range state.Mods {
		assert.True(t, catIDs[m.CategoryID])
	}
}

func TestAssemble_UniqueIDsUniquePerBoard(t *testing.T) {
	cats := []CategoryInput{
		{Title: "Performance", Mods: []ModPlacement{{SourceID: "a"}, {SourceID: "b"}, {SourceID: "c"}}},
	}
	state := Assemble("proj", cats, time.Now())

	seen := make(map[string]bool)
	for _, m := range state.Mods {
		assert.False(t, seen[m.UniqueID])
		seen[m.UniqueID] = true
	}
}

func TestAssemble_CategoryIndexIsPositionWithinOwnCategory(t *testing.T) {
	cats := []CategoryInput{
		{Title: "A", Mods: []ModPlacement{{SourceID: "1"}}},
		{Title: "B", Mods: []ModPlacement{{SourceID: "2"}}},
	}
	state := Assemble("proj", cats, time.Now())

	// Each mod is the first (and only) entry in its own category, so both
	// get index 0 — CategoryIndex is scoped to the category, not the board.
	assert.Equal(t, 0, state.Mods[0].CategoryIndex)
	assert.Equal(t, 0, state.Mods[1].CategoryIndex)
}

func TestAssemble_CategoryIndexUniqueWithinMultiModCategory(t *testing.T) {
	cats := []CategoryInput{
		{Title: "Performance", Mods: []ModPlacement{{SourceID: "sodium"}, {SourceID: "lithium"}}},
	}
	state := Assemble("proj", cats, time.Now())

	require.Len(t, state.Mods, 2)
	assert.Equal(t, 0, state.Mods[0].CategoryIndex)
	assert.Equal(t, 1, state.Mods[1].CategoryIndex)
	assert.NotEqual(t, state.Mods[0].CategoryIndex, state.Mods[1].CategoryIndex)
}
