package orchestrator

import (
	"github.com/modforge/assembly/pkg/board"
	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/models"
)

// categoryPalette cycles a fixed set of board colors across categories, in
// the same spirit as the teacher's deterministic-by-position UI defaults.
var categoryPalette = []string{
	"#5B8DEF", "#54C7A2", "#F2B84B", "#E4694C",
	"#9C6ADE", "#4CC3D9", "#D65DB1", "#8C8C8C",
}

func paletteColor(i int) string {
	return categoryPalette[i%len(categoryPalette)]
}

// placementFor builds a board.ModPlacement for m, listing as cached
// dependencies every required dependency of m that made it onto the final
// board (§4.K "ids it should list are filled in once they're known to be on
// the board").
func placementFor(m models.Mod, onBoard map[string]bool) board.ModPlacement {
	var deps []string
	for _, d := range m.Dependencies {
		if d.DependencyType != models.DependencyRequired {
			continue
		}
		if onBoard[d.ProjectID] {
			deps = append(deps, d.ProjectID)
		}
	}
	return board.ModPlacement{
		SourceID:           m.SourceID,
		Slug:               m.Slug,
		Title:              m.Name,
		IconURL:            m.IconURL,
		Description:        m.Summary,
		CachedDependencies: deps,
	}
}

// themedCategoryInputs groups the final mod set into the refined
// architecture's categories by capability match, falling back to a
// catch-all trailing category for anything unmatched (§4.K lays out
// category rectangles; §4.G.2 only fixes target sizes, not membership, so
// this assignment is the board-assembly-time materialization of it).
func themedCategoryInputs(arch models.PlannedArchitecture, mods []models.Mod) []board.CategoryInput {
	onBoard := make(map[string]bool, len(mods))
	for _, m := range mods {
		onBoard[m.SourceID] = true
	}

	inputs := make([]board.CategoryInput, len(arch.Categories))
	for i, c := range arch.Categories {
		inputs[i] = board.CategoryInput{Title: c.Name, Color: paletteColor(i)}
	}

	var catchAll []board.ModPlacement
	for _, m := range mods {
		idx, ok := bestThemedCategory(m, arch.Categories)
		if !ok {
			catchAll = append(catchAll, placementFor(m, onBoard))
			continue
		}
		inputs[idx].Mods = append(inputs[idx].Mods, placementFor(m, onBoard))
	}

	if len(catchAll) > 0 {
		inputs = append(inputs, board.CategoryInput{
			Title: "Other",
			Color: paletteColor(len(inputs)),
			Mods:  catchAll,
		})
	}
	return inputs
}

// bestThemedCategory picks the first category m satisfies on required
// capabilities, else the first it satisfies on preferred capabilities.
func bestThemedCategory(m models.Mod, categories []models.PlannedCategory) (int, bool) {
	for i, c := range categories {
		if len(c.RequiredCapabilities) > 0 && m.HasAnyCapability(c.RequiredCapabilities) {
			return i, true
		}
	}
	for i, c := range categories {
		if len(c.PreferredCapabilities) > 0 && m.HasAnyCapability(c.PreferredCapabilities) {
			return i, true
		}
	}
	return 0, false
}

// simpleCategoryInputs groups the final mod set by the Categorizer's fixed
// 8-category assignment (§4.I), emitting only categories that received at
// least one mod, in the Categorizer's presentation order.
func simpleCategoryInputs(assignments map[string]categorizer.Category, mods []models.Mod) []board.CategoryInput {
	onBoard := make(map[string]bool, len(mods))
	for _, m := range mods {
		onBoard[m.SourceID] = true
	}

	byCategory := make(map[categorizer.Category][]board.ModPlacement)
	for _, m := range mods {
		cat := assignments[m.SourceID]
		byCategory[cat] = append(byCategory[cat], placementFor(m, onBoard))
	}

	var inputs []board.CategoryInput
	for i, cat := range categorizer.Categories {
		placements, ok := byCategory[cat]
		if !ok {
			continue
		}
		inputs = append(inputs, board.CategoryInput{
			Title: string(cat),
			Color: paletteColor(i),
			Mods:  placements,
		})
	}
	return inputs
}
