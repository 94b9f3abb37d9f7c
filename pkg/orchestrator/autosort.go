package orchestrator

import (
	"context"

	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/events"
	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/tracer"
)

// AutoSortMod is one entry of POST /api/ai/auto-sort's `mods` array (§6).
type AutoSortMod struct {
	Name        string
	SourceID    string
	Description string
}

// AutoSortRequest is POST /api/ai/auto-sort's decoded body plus the
// authenticated caller (§6).
type AutoSortRequest struct {
	UserID string
	Mods   []AutoSortMod
}

// AutoSortStats mirrors AssemblyStats's shape for the simpler auto-sort
// flow, surfaced in the terminal complete payload's `stats` field (§6).
type AutoSortStats struct {
	Sorted int `json:"sorted"`
}

// AutoSortResult is the terminal `complete` payload for an auto-sort
// request (§6 "{success, categories, mod_to_category, stats}").
type AutoSortResult struct {
	Success       bool              `json:"success"`
	Categories    []string          `json:"categories"`
	ModToCategory map[string]string `json:"mod_to_category"`
	Stats         AutoSortStats     `json:"stats"`
	Pipeline      tracer.Tracer     `json:"_pipeline"`
}

// RunAutoSort runs the standalone Categorizer (§4.I) over a caller-supplied
// mod list, independent of the build-board flow. Mods the Mod Store
// recognizes are enriched with their real capabilities before heuristic
// classification; unrecognized mods fall back to a bare stub, which the
// Categorizer's heuristic resolves to "Other".
func (o *Orchestrator) RunAutoSort(ctx context.Context, req AutoSortRequest, tr *tracer.Tracer, pub events.Publisher) (AutoSortResult, error) {
	user, err := o.quota.Check(ctx, req.UserID, 0)
	if err != nil {
		err = quotaFail(err)
		publishErrorFor(ctx, pub, err)
		return AutoSortResult{}, err
	}

	publishStage(ctx, pub, "categorizer", 0.3, "sorting mods")

	ids := make([]string, 0, len(req.Mods))
	for _, m := range req.Mods {
		ids = append(ids, m.SourceID)
	}

	var known map[string]models.Mod
	if stageErr := tr.StageFunc("mod_lookup", func() error {
		var e error
		known, e = o.modStore.GetModsByProjectIDs(ctx, ids)
		return e
	}); stageErr != nil {
		wrapped := fail("mod_lookup", stageErr)
		publishErrorFor(ctx, pub, wrapped)
		return AutoSortResult{}, wrapped
	}

	mods := make([]models.Mod, 0, len(req.Mods))
	for _, m := range req.Mods {
		if full, ok := known[m.SourceID]; ok {
			mods = append(mods, full)
			continue
		}
		mods = append(mods, models.Mod{SourceID: m.SourceID, Name: m.Name})
	}

	var (
		assignments map[string]categorizer.Category
		usage       llmgw.TokenUsage
		cost        float64
	)
	if stageErr := tr.StageFunc("categorizer", func() error {
		var e error
		assignments, usage, cost, e = o.categorizer.Categorize(ctx, mods)
		return e
	}); stageErr != nil {
		wrapped := fail("categorizer", stageErr)
		publishErrorFor(ctx, pub, wrapped)
		return AutoSortResult{}, wrapped
	}
	tr.RecordLLMCall("categorizer", usage, cost)

	modToCategory := make(map[string]string, len(assignments))
	seen := make(map[string]bool)
	var categories []string
	for _, m := range mods {
		cat := string(assignments[m.SourceID])
		modToCategory[m.SourceID] = cat
		if !seen[cat] {
			seen[cat] = true
			categories = append(categories, cat)
		}
	}

	publishStage(ctx, pub, "categorizer", 0.9, "")

	if err := o.quota.RecordSuccess(ctx, user.ID, usage.Total()); err != nil {
		wrapped := fail("quota_record", err)
		publishErrorFor(ctx, pub, wrapped)
		return AutoSortResult{}, wrapped
	}

	result := AutoSortResult{
		Success:       true,
		Categories:    categories,
		ModToCategory: modToCategory,
		Stats:         AutoSortStats{Sorted: len(mods)},
		Pipeline:      tr.Snapshot(),
	}
	publishComplete(ctx, pub, result)
	return result, nil
}
