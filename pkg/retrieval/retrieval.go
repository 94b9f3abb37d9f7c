// Package retrieval implements Hybrid Retrieval (§4.C): per-query vector or
// keyword search fanned out in parallel, fused with weighted Reciprocal Rank
// Fusion, and post-filtered for loader/version/download eligibility.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/store"
)

// rrfK is the rank-fusion damping constant from §4.C's
// score(mod) = Σ w_query · 1/(60 + rank_within_query).
const rrfK = 60

// VectorK and KeywordK are the per-query candidate depths §4.C specifies.
const (
	VectorK  = 40
	KeywordK = 150
)

// MinCandidates and MaxCandidates bound the fused output list (§4.C "80-300").
const (
	MinCandidates = 80
	MaxCandidates = 300
)

// Searcher is the subset of pkg/store.Store Hybrid Retrieval needs.
type Searcher interface {
	VectorSearch(ctx context.Context, qEmbedding []float32, filters store.Filters, k int) ([]store.Candidate, error)
	KeywordSearch(ctx context.Context, terms string, filters store.Filters, k int) ([]store.Candidate, error)
}

// Retriever fans a SearchPlan's queries out over a Searcher and fuses them.
type Retriever struct {
	store       Searcher
	embedder    embedder.Embedder
	fanoutLimit int64
}

// New builds a Retriever. fanoutLimit bounds concurrent per-query searches
// (§5, default 8 — config.Defaults.FanoutLimit).
func New(s Searcher, e embedder.Embedder, fanoutLimit int) *Retriever {
	if fanoutLimit < 1 {
		fanoutLimit = 8
	}
	return &Retriever{store: s, embedder: e, fanoutLimit: int64(fanoutLimit)}
}

// Target narrows a retrieval call to a loader/version/download pack target.
type Target struct {
	Loader       string
	GameVersion  string
	MinDownloads int64
}

// Trace explains why a candidate survived fusion (advisory, attached to the
// orchestrator's pipeline trace, not persisted).
type Trace struct {
	ContributingQueries []string `json:"contributing_queries"`
	BaselineBoost       float64  `json:"baseline_boost,omitempty"`
}

// Result is one fused, post-filtered candidate mod with its RRF score.
type Result struct {
	Mod   models.Mod `json:"mod"`
	Score float64    `json:"score"`
	Trace Trace      `json:"trace"`
}

// fused accumulates one mod's RRF score and contributing queries across a
// fan-out pass. byID is reused across the normal and widened passes, so a
// mod returned by both passes accumulates the RRF contributions of both.
type fused struct {
	mod     models.Mod
	score   float64
	sources []string
}

// Retrieve executes every SearchPlan query in parallel, fuses the per-query
// rankings with weighted RRF, applies the baseline-mod boost, deduplicates
// by source id, and returns 80-300 eligible candidates ordered by score. If
// the normal filters leave fewer than MinCandidates, a second widened pass
// drops the download floor before falling back to whatever the corpus
// actually has (§4.C "80-300 candidates").
func (r *Retriever) Retrieve(ctx context.Context, plan models.SearchPlan, target Target) ([]Result, error) {
	filters := store.Filters{
		Loader:       target.Loader,
		GameVersion:  target.GameVersion,
		MinDownloads: target.MinDownloads,
	}

	byID := make(map[string]*fused)
	if err := r.fanOut(ctx, plan, filters, byID); err != nil {
		return nil, err
	}

	out := fuseAndFilter(byID, plan, target)

	if len(out) < MinCandidates && target.MinDownloads > 0 {
		widened := filters
		widened.MinDownloads = 0
		if err := r.fanOut(ctx, plan, widened, byID); err != nil {
			return nil, err
		}
		out = fuseAndFilter(byID, plan, target)
	}

	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out, nil
}

// fanOut runs every SearchPlan query in parallel under filters and folds
// each query's ranked candidates into byID, keyed by source id so repeat
// passes accumulate rather than overwrite.
func (r *Retriever) fanOut(ctx context.Context, plan models.SearchPlan, filters store.Filters, byID map[string]*fused) error {
	type hit struct {
		queryText string
		weight    float64
		cands     []store.Candidate
	}
	hits := make([]hit, len(plan.SearchQueries))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(r.fanoutLimit)
	for i, q := range plan.SearchQueries {
		i, q := i, q
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			cands, err := r.runQuery(gctx, q, filters)
			if err != nil {
				return fmt.Errorf("retrieval: query %q: %w", q.Text, err)
			}
			hits[i] = hit{queryText: q.Text, weight: q.Weight, cands: cands}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, h := range hits {
		for _, c := range h.cands {
			f, ok := byID[c.Mod.SourceID]
			if !ok {
				f = &fused{mod: c.Mod}
				byID[c.Mod.SourceID] = f
			}
			f.score += h.weight * rrfScore(c.Rank)
			f.sources = append(f.sources, h.queryText)
		}
	}
	return nil
}

// fuseAndFilter applies the baseline-mod boost, drops ineligible candidates,
// and orders the rest by score descending (source id breaking ties).
func fuseAndFilter(byID map[string]*fused, plan models.SearchPlan, target Target) []Result {
	baselinePrevalence := prevalence(plan.BaselineMods)

	out := make([]Result, 0, len(byID))
	for _, f := range byID {
		if !eligible(f.mod, target) {
			continue
		}
		out = append(out, Result{
			Mod:   f.mod,
			Score: f.score + baselinePrevalence[f.mod.SourceID],
			Trace: Trace{ContributingQueries: f.sources, BaselineBoost: baselinePrevalence[f.mod.SourceID]},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Mod.SourceID < out[j].Mod.SourceID
	})
	return out
}

func (r *Retriever) runQuery(ctx context.Context, q models.SearchQuery, filters store.Filters) ([]store.Candidate, error) {
	switch q.Kind {
	case models.QuerySemantic:
		vec, err := r.embedder.Embed(ctx, q.Text)
		if err != nil {
			// §4.A: embedding failures fall back to lexical-only retrieval
			// for this query rather than failing the whole plan.
			return r.store.KeywordSearch(ctx, q.Text, filters, KeywordK)
		}
		return r.store.VectorSearch(ctx, vec, filters, VectorK)
	case models.QueryKeyword:
		return r.store.KeywordSearch(ctx, q.Text, filters, KeywordK)
	default:
		return r.store.KeywordSearch(ctx, q.Text, filters, KeywordK)
	}
}

func rrfScore(rank int) float64 {
	return 1.0 / float64(rrfK+rank)
}

// prevalence gives each baseline mod an additive boost proportional to how
// often it appears in BaselineMods (a mod named twice — e.g. present in both
// the user's current list and an inferred archetype — scores higher).
func prevalence(baselineMods []string) map[string]float64 {
	if len(baselineMods) == 0 {
		return nil
	}
	counts := make(map[string]int, len(baselineMods))
	for _, id := range baselineMods {
		counts[id]++
	}
	const unitBoost = 0.05
	boosts := make(map[string]float64, len(counts))
	for id, n := range counts {
		boosts[id] = unitBoost * float64(n)
	}
	return boosts
}

func eligible(m models.Mod, target Target) bool {
	if target.Loader != "" && !m.UsableUnder(target.Loader) {
		return false
	}
	if target.GameVersion != "" && !m.SupportsVersion(target.GameVersion) {
		return false
	}
	return true
}
