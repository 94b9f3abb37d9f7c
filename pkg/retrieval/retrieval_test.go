package retrieval_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/retrieval"
	"github.com/modforge/assembly/pkg/store"
)

// fakeSearcher canned-answers VectorSearch/KeywordSearch by query text so
// tests can exercise fusion without a database.
type fakeSearcher struct {
	vector  map[string][]store.Candidate
	keyword map[string][]store.Candidate
}

func (f *fakeSearcher) VectorSearch(_ context.Context, _ []float32, _ store.Filters, _ int) ([]store.Candidate, error) {
	panic("unused: fakeSearcher dispatches by query text, see vectorByText")
}

func (f *fakeSearcher) KeywordSearch(_ context.Context, terms string, _ store.Filters, _ int) ([]store.Candidate, error) {
	return f.keyword[terms], nil
}

// textSearcher wraps fakeSearcher but also needs the query text for vector
// dispatch; the Retriever only ever calls VectorSearch after Embed(text), so
// we key the fixture off an embeddingEcho that encodes the text in the vector.
type textSearcher struct {
	byText map[string][]store.Candidate
}

func (t *textSearcher) VectorSearch(_ context.Context, q []float32, _ store.Filters, _ int) ([]store.Candidate, error) {
	return t.byText[decodeText(q)], nil
}

func (t *textSearcher) KeywordSearch(_ context.Context, terms string, _ store.Filters, _ int) ([]store.Candidate, error) {
	return t.byText[terms], nil
}

type echoEmbedder struct{}

func (echoEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return encodeText(text), nil
}

func encodeText(text string) []float32 {
	out := make([]float32, len(text))
	for i, b := range []byte(text) {
		out[i] = float32(b)
	}
	return out
}

func decodeText(v []float32) string {
	b := make([]byte, len(v))
	for i, f := range v {
		b[i] = byte(f)
	}
	return string(b)
}

func mod(id string, loaders ...string) models.Mod {
	return models.Mod{SourceID: id, Slug: id, Name: id, Loaders: loaders, GameVersions: []string{"1.20.1"}, Downloads: 10000}
}

func TestRetrieve_FusesMultipleQueriesByRRF(t *testing.T) {
	searcher := &textSearcher{byText: map[string][]store.Candidate{
		"performance": {
			{Mod: mod("sodium", "fabric"), Rank: 1},
			{Mod: mod("lithium", "fabric"), Rank: 2},
		},
		"optimization mods": {
			{Mod: mod("lithium", "fabric"), Rank: 1},
			{Mod: mod("sodium", "fabric"), Rank: 2},
		},
	}}
	plan := models.SearchPlan{
		SearchQueries: []models.SearchQuery{
			{Kind: models.QuerySemantic, Text: "performance", Weight: 1.0},
			{Kind: models.QueryKeyword, Text: "optimization mods", Weight: 0.5},
		},
	}

	r := retrieval.New(searcher, echoEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric", GameVersion: "1.20.1"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// sodium: 1.0*1/61 + 0.5*1/62 ; lithium: 1.0*1/62 + 0.5*1/61 -- sodium wins
	assert.Equal(t, "sodium", results[0].Mod.SourceID)
	assert.Equal(t, "lithium", results[1].Mod.SourceID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieve_BaselineModsGetPrevalenceBoost(t *testing.T) {
	searcher := &textSearcher{byText: map[string][]store.Candidate{
		"keyword": {
			{Mod: mod("jei", "fabric"), Rank: 1},
			{Mod: mod("rei", "fabric"), Rank: 1},
		},
	}}
	plan := models.SearchPlan{
		SearchQueries: []models.SearchQuery{{Kind: models.QueryKeyword, Text: "keyword", Weight: 1.0}},
		BaselineMods:  []string{"rei", "rei"},
	}

	r := retrieval.New(searcher, echoEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "rei", results[0].Mod.SourceID, "baseline prevalence should break the rank tie")
}

func TestRetrieve_DropsIneligibleLoaders(t *testing.T) {
	searcher := &textSearcher{byText: map[string][]store.Candidate{
		"keyword": {
			{Mod: mod("forge-only-mod", "forge"), Rank: 1},
			{Mod: mod("universal-lib", "universal"), Rank: 2},
		},
	}}
	plan := models.SearchPlan{SearchQueries: []models.SearchQuery{{Kind: models.QueryKeyword, Text: "keyword", Weight: 1.0}}}

	r := retrieval.New(searcher, echoEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "universal-lib", results[0].Mod.SourceID)
}

func TestRetrieve_SemanticQueryFallsBackToKeywordOnEmbedFailure(t *testing.T) {
	searcher := &fakeSearcher{keyword: map[string][]store.Candidate{
		"rendering": {{Mod: mod("sodium", "fabric"), Rank: 1}},
	}}
	plan := models.SearchPlan{SearchQueries: []models.SearchQuery{{Kind: models.QuerySemantic, Text: "rendering", Weight: 1.0}}}

	r := retrieval.New(searcher, failingEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sodium", results[0].Mod.SourceID)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, embedder.ErrTransient
}

// downloadFilteringSearcher actually honors filters.MinDownloads, unlike
// the other fakes in this file, so it can exercise Retrieve's widened pass.
type downloadFilteringSearcher struct {
	all []store.Candidate
}

func (s *downloadFilteringSearcher) VectorSearch(_ context.Context, _ []float32, filters store.Filters, _ int) ([]store.Candidate, error) {
	return s.search(filters)
}

func (s *downloadFilteringSearcher) KeywordSearch(_ context.Context, _ string, filters store.Filters, _ int) ([]store.Candidate, error) {
	return s.search(filters)
}

func (s *downloadFilteringSearcher) search(filters store.Filters) ([]store.Candidate, error) {
	var out []store.Candidate
	for _, c := range s.all {
		if filters.MinDownloads > 0 && c.Mod.Downloads < filters.MinDownloads {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func TestRetrieve_WidensPastDownloadFloorWhenBelowMinCandidates(t *testing.T) {
	var all []store.Candidate
	for i := 0; i < 90; i++ {
		m := mod(fmt.Sprintf("mod-%02d", i), "fabric")
		if i < 5 {
			m.Downloads = 50000
		} else {
			m.Downloads = 100
		}
		all = append(all, store.Candidate{Mod: m, Rank: i + 1})
	}
	searcher := &downloadFilteringSearcher{all: all}
	plan := models.SearchPlan{SearchQueries: []models.SearchQuery{{Kind: models.QueryKeyword, Text: "anything", Weight: 1.0}}}

	r := retrieval.New(searcher, echoEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric", MinDownloads: 5000})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(results), retrieval.MinCandidates, "widened pass should pull in below-floor candidates once the strict pass falls short")
}

func TestRetrieve_NoWidenWhenFloorAlreadySatisfiesMinCandidates(t *testing.T) {
	var all []store.Candidate
	for i := 0; i < 90; i++ {
		m := mod(fmt.Sprintf("mod-%02d", i), "fabric")
		m.Downloads = 50000
		all = append(all, store.Candidate{Mod: m, Rank: i + 1})
	}
	searcher := &downloadFilteringSearcher{all: all}
	plan := models.SearchPlan{SearchQueries: []models.SearchQuery{{Kind: models.QueryKeyword, Text: "anything", Weight: 1.0}}}

	r := retrieval.New(searcher, echoEmbedder{}, 4)
	results, err := r.Retrieve(context.Background(), plan, retrieval.Target{Loader: "fabric", MinDownloads: 5000})
	require.NoError(t, err)
	assert.Len(t, results, 90)
}
