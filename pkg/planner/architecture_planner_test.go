package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/planner"
)

func TestArchitecturePlanner_Plan_ExtractsBaselineFromReferencePrevalence(t *testing.T) {
	gw := gatewayWith(t, map[string]any{
		"categories": []map[string]any{
			{"name": "Magic", "required_capabilities": []string{"magic.spells"}, "target_mods": 10},
		},
		"pack_archetype":       "fantasy",
		"estimated_total_mods": 40,
	})
	ap := planner.NewArchitecturePlanner(gw)

	refs := []models.Modpack{
		refModpack("jei", "waystones", "iron-chests"),
		refModpack("jei", "waystones"),
		refModpack("jei", "waystones", "create"),
	}

	arch, baseline, _, _, err := ap.Plan(context.Background(), planner.PlanInput{
		Prompt: "fantasy pack", MaxMods: 40, ReferenceModpacks: refs,
	})
	require.NoError(t, err)
	require.Len(t, arch.Categories, 1)
	// jei/waystones appear in 3/3 >= 70%; iron-chests and create appear in 1/3 < 70%.
	assert.ElementsMatch(t, []string{"jei", "waystones"}, baseline)
}

func refModpack(sourceIDs ...string) models.Modpack {
	return models.Modpack{
		SourceID: "ref-" + sourceIDs[0],
		Architecture: models.Architecture{
			Categories: []models.ArchitectureCategory{
				{Name: "Core", Providers: models.CategoryProviders{"utility": sourceIDs}},
			},
		},
	}
}

func TestArchitecturePlanner_Refine_SplitsOversizedCategory(t *testing.T) {
	gw := gatewayWith(t, map[string]any{"categories": []map[string]any{}})
	ap := planner.NewArchitecturePlanner(gw)

	initial := models.PlannedArchitecture{
		Categories: []models.PlannedCategory{
			{Name: "Gameplay", RequiredCapabilities: []string{"gameplay.general"}, TargetMods: 20},
		},
	}
	selected := make([]models.SelectedMod, 0, 18)
	modsByID := make(map[string]models.Mod)
	for i := 0; i < 18; i++ {
		id := modID(i)
		selected = append(selected, models.SelectedMod{SourceID: id, Role: models.RolePrimary})
		modsByID[id] = models.Mod{SourceID: id, Capabilities: []string{capForIndex(i), "gameplay.general"}}
	}

	refined, _, _, err := ap.Refine(context.Background(), planner.RefineInput{
		Initial: initial, Selected: selected, ModsByID: modsByID,
	})
	require.NoError(t, err)
	assert.Greater(t, len(refined.Categories), 1, "18 gameplay mods should split into sub-categories")
}

func modID(i int) string { return "mod-" + string(rune('a'+i)) }
func capForIndex(i int) string {
	caps := []string{"gameplay.farming", "gameplay.combat", "gameplay.building"}
	return caps[i%len(caps)]
}

func TestArchitecturePlanner_Refine_GroupsLibrariesWhenManySelected(t *testing.T) {
	gw := gatewayWith(t, map[string]any{"categories": []map[string]any{
		{"name": "Libraries", "required_capabilities": []string{"dependency.library"}, "target_mods": 25},
	}})
	ap := planner.NewArchitecturePlanner(gw)

	initial := models.PlannedArchitecture{
		Categories: []models.PlannedCategory{
			{Name: "Libraries", RequiredCapabilities: []string{"dependency.library"}, TargetMods: 25},
		},
	}
	selected := make([]models.SelectedMod, 0, 22)
	modsByID := make(map[string]models.Mod)
	for i := 0; i < 22; i++ {
		id := modID(i)
		selected = append(selected, models.SelectedMod{SourceID: id, Role: models.RoleLibrary})
		modsByID[id] = models.Mod{SourceID: id, Capabilities: []string{"dependency.library"}}
	}

	refined, _, _, err := ap.Refine(context.Background(), planner.RefineInput{
		Initial: initial, Selected: selected, ModsByID: modsByID,
	})
	require.NoError(t, err)

	var names []string
	for _, c := range refined.Categories {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Libraries: Core")
}
