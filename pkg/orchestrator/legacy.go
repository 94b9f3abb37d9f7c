package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modforge/assembly/pkg/board"
	"github.com/modforge/assembly/pkg/categorizer"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/store"
	"github.com/modforge/assembly/pkg/tracer"
)

// legacyMaxMods is the hard cap on POST /api/legacy/search (§12 "hard cap
// max_mods<=10"), independent of any tier's configured limit.
const legacyMaxMods = 10

// legacyKeywordK is the candidate depth for the single keyword query this
// endpoint runs — no fan-out, no RRF fusion, no vector search.
const legacyKeywordK = 50

// LegacySearcher is the subset of pkg/store.Store the legacy flow needs.
type LegacySearcher interface {
	KeywordSearch(ctx context.Context, terms string, filters store.Filters, k int) ([]store.Candidate, error)
}

// LegacySearchRequest is POST /api/legacy/search's decoded body (§12).
type LegacySearchRequest struct {
	Query     string
	ModLoader string
	MCVersion string
	MaxMods   int
}

// LegacySearchResult mirrors AssemblyResult's shape minus the fields only a
// full assembly pipeline can populate (no architecture explanation, no
// dependency/conflict accounting — this path never resolves dependencies).
type LegacySearchResult struct {
	Success    bool              `json:"success"`
	BuildID    string            `json:"build_id"`
	BoardState models.BoardState `json:"board_state"`
	Summary    string            `json:"summary"`
	Pipeline   tracer.Tracer     `json:"_pipeline"`
}

// RunLegacySearch implements the unauthenticated fallback endpoint (§12
// Supplemented Features, resolving spec.md §9's open question on the
// legacy search contract): a single lexical keyword search with a fixed
// 10-mod cap, no LLM call anywhere in the flow, so it never consumes a
// tier's AI token budget. It does not go through the Quota Gate and does
// not touch any user's counters.
func (o *Orchestrator) RunLegacySearch(ctx context.Context, searcher LegacySearcher, req LegacySearchRequest) (LegacySearchResult, error) {
	maxMods := req.MaxMods
	if maxMods <= 0 || maxMods > legacyMaxMods {
		maxMods = legacyMaxMods
	}

	tr := tracer.New(uuid.NewString())
	var candidates []store.Candidate
	err := tr.StageFunc("keyword_search", func() error {
		var e error
		candidates, e = searcher.KeywordSearch(ctx, req.Query, store.Filters{
			Loader:      req.ModLoader,
			GameVersion: req.MCVersion,
		}, legacyKeywordK)
		return e
	})
	if err != nil {
		return LegacySearchResult{}, fail("keyword_search", err)
	}

	if len(candidates) > maxMods {
		candidates = candidates[:maxMods]
	}
	mods := make([]models.Mod, len(candidates))
	for i, c := range candidates {
		mods[i] = c.Mod
	}

	var assignments map[string]categorizer.Category
	if err := tr.StageFunc("categorizer_heuristic", func() error {
		assignments = categorizer.Heuristic(mods)
		return nil
	}); err != nil {
		return LegacySearchResult{}, fail("categorizer_heuristic", err)
	}

	categoryInputs := simpleCategoryInputs(assignments, mods)

	var boardState models.BoardState
	if err := tr.StageFunc("board_assembler", func() error {
		boardState = board.Assemble(uuid.NewString(), categoryInputs, time.Now())
		return nil
	}); err != nil {
		return LegacySearchResult{}, fail("board_assembler", err)
	}

	return LegacySearchResult{
		Success:    true,
		BuildID:    uuid.NewString(),
		BoardState: boardState,
		Summary:    fmt.Sprintf("Found %d mods for %q (legacy lexical search, unauthenticated).", len(mods), req.Query),
		Pipeline:   tr.Snapshot(),
	}, nil
}
