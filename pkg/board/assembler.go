// Package board implements the Board Assembler (§4.K): deterministic grid
// layout of selected mods into category rectangles, with fresh UUIDs for
// every placed mod and category.
package board

import (
	"time"

	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/models"
)

// Layout constants (§4.K "e.g. 340 units" / "e.g. 60 units vertical").
const (
	ColumnWidth     = 340.0
	RowPitch        = 60.0
	CategoryPadding = 40.0
	CategoryGap     = 60.0
)

// CategoryInput is one category to lay out, in insertion order.
type CategoryInput struct {
	Title string
	Color string
	// Mods in display order within the category.
	Mods []ModPlacement
}

// ModPlacement is the minimal info the assembler needs per mod; dependency
// ids it should list are filled in once they're known to be on the board.
type ModPlacement struct {
	SourceID           string
	Slug               string
	Title              string
	IconURL            string
	Description        string
	CachedDependencies []string
}

// idGen abstracts uuid.NewString so tests can inject fixed seeds and assert
// determinism "modulo UUID generation" (§4.K, §8 round-trip law).
type idGen func() string

// Assemble lays out categories left-to-right in a single row of rectangles,
// each category populated row-major by fixed cell pitch. The resulting
// BoardState is deterministic given the same input and uuid generator.
func Assemble(projectID string, categories []CategoryInput, now time.Time) models.BoardState {
	return assemble(projectID, categories, now, uuid.NewString)
}

// assembleWithIDs is the seedable entry point used by tests.
func assembleWithIDs(projectID string, categories []CategoryInput, now time.Time, ids idGen) models.BoardState {
	return assemble(projectID, categories, now, ids)
}

func assemble(projectID string, categories []CategoryInput, now time.Time, newID idGen) models.BoardState {
	state := models.BoardState{
		ProjectID: projectID,
		Camera:    models.Camera{X: 0, Y: 0, Zoom: 1},
		UpdatedAt: now,
	}

	cursorX := 0.0
	for _, cat := range categories {
		rows := (len(cat.Mods) + columnsPerCategory() - 1) / columnsPerCategory()
		if rows == 0 {
			rows = 1
		}
		height := CategoryPadding*2 + float64(rows)*RowPitch

		categoryID := newID()
		state.Categories = append(state.Categories, models.BoardCategory{
			ID:       categoryID,
			Title:    cat.Title,
			Position: models.Point{X: cursorX, Y: 0},
			Color:    cat.Color,
			Width:    ColumnWidth,
			Height:   height,
		})

		for i, m := range cat.Mods {
			row := i / columnsPerCategory()
			col := i % columnsPerCategory()
			state.Mods = append(state.Mods, models.BoardMod{
				SourceID:           m.SourceID,
				Slug:               m.Slug,
				Title:              m.Title,
				IconURL:            m.IconURL,
				Description:        m.Description,
				UniqueID:           newID(),
				Position:           models.Point{X: cursorX + CategoryPadding + float64(col)*(ColumnWidth/float64(columnsPerCategory())), Y: CategoryPadding + float64(row)*RowPitch},
				CategoryID:         categoryID,
				CategoryIndex:      i,
				CachedDependencies: m.CachedDependencies,
			})
		}

		cursorX += ColumnWidth + CategoryGap
	}

	return state
}

// columnsPerCategory is fixed at 1: mods stack row-major within a category's
// single-column rectangle, matching "row-major at fixed cell pitch" (§4.K).
func columnsPerCategory() int { return 1 }
