package executor

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

func newRetriever(t *testing.T, m *metrics.Metrics) *Retriever {
	t.Helper()
	idx, err := indexer.Build(context.Background(), []corpus.Document{
		{ID: "d1", Title: "Cats", Text: "the cat sat on the mat"},
		{ID: "d2", Title: "Dogs", Text: "a dog chased the cat"},
		{ID: "d3", Title: "Birds", Text: "a bird sang"},
		{ID: "d4", Title: "Felines", Text: "feline behaviour and feline diet"},
	})
	require.NoError(t, err)
	scorer, err := ranker.NewScorer(ranker.DefaultParams())
	require.NoError(t, err)
	return New(idx, scorer, 2, m)
}

func mustQuery(t *testing.T, qid, text string) parser.Query {
	t.Helper()
	q, err := parser.Parse(qid, text)
	require.NoError(t, err)
	return q
}

func TestRetrieveTopKRejectsNonPositiveK(t *testing.T) {
	r := newRetriever(t, nil)
	for _, k := range []int{0, -3} {
		_, err := r.RetrieveTopK(context.Background(), "baseline", nil, k, expansion.Identity{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	}
}

func TestRetrieveTopKFewerThanKMatches(t *testing.T) {
	r := newRetriever(t, nil)
	batch, err := r.RetrieveTopK(context.Background(), "baseline",
		[]parser.Query{mustQuery(t, "q1", "cat"), mustQuery(t, "q2", "unicorn")}, 10, expansion.Identity{})
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "d2"}, sortedIDs(batch.Results["q1"]))
	assert.Equal(t, 2, batch.Outcomes["q1"].Hits)
	assert.Empty(t, batch.Results["q2"])
	assert.False(t, batch.Outcomes["q2"].Failed())
	assert.Equal(t, []string{"q1", "q2"}, batch.QIDs())
}

func TestRetrieveTopKTruncatesToK(t *testing.T) {
	r := newRetriever(t, nil)
	batch, err := r.RetrieveTopK(context.Background(), "baseline",
		[]parser.Query{mustQuery(t, "q1", "cat dog bird feline")}, 2, expansion.Identity{})
	require.NoError(t, err)
	assert.Len(t, batch.Results["q1"], 2)
}

func TestRetrieveTopKIsolatesFailures(t *testing.T) {
	r := newRetriever(t, nil)
	panicky := expansion.Func(func(_ context.Context, q parser.Query) (parser.ExpandedQuery, error) {
		if q.QID == "boom" {
			panic("source exploded")
		}
		return parser.Identity(q), nil
	})
	queries := []parser.Query{
		mustQuery(t, "q1", "cat"),
		{QID: "empty", RawText: "the and"},
		mustQuery(t, "boom", "dog"),
	}
	batch, err := r.RetrieveTopK(context.Background(), "expanded", queries, 5, panicky)
	require.NoError(t, err)

	assert.Equal(t, []string{"boom", "empty"}, batch.Failures())
	assert.NotEmpty(t, batch.Results["q1"])
	_, ok := batch.Results["boom"]
	assert.False(t, ok)
	assert.Contains(t, batch.Outcomes["boom"].Error, "panic")
}

func TestRetrieveTopKRecordsFallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	r := newRetriever(t, m)
	failing := expansion.NewGuarded("thesaurus", expansion.Func(func(context.Context, parser.Query) (parser.ExpandedQuery, error) {
		return parser.ExpandedQuery{}, apperrors.Expansionf("source down")
	}), expansion.GuardOptions{FailureThreshold: 100, Metrics: m})

	batch, err := r.RetrieveTopK(context.Background(), "expanded", []parser.Query{mustQuery(t, "q1", "cat")}, 5, failing)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, batch.Fallbacks())
	assert.Empty(t, batch.Failures())
	assert.NotEmpty(t, batch.Results["q1"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpansionFallbacks.WithLabelValues("thesaurus", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("expanded", "ok")))
}

func TestRetrieveTopKFailingExpansionLeavesSiblingsExpanded(t *testing.T) {
	r := newRetriever(t, nil)
	source := expansion.NewGuarded("thesaurus", expansion.Func(func(_ context.Context, q parser.Query) (parser.ExpandedQuery, error) {
		if q.QID == "ok" {
			return parser.Expand(q, map[string]float64{"feline": 0.5}), nil
		}
		return parser.ExpandedQuery{}, apperrors.Expansionf("no entry for %s", q.QID)
	}), expansion.GuardOptions{ResetTimeout: time.Hour})

	queries := []parser.Query{
		mustQuery(t, "f1", "cat"),
		mustQuery(t, "f2", "cat"),
		mustQuery(t, "f3", "cat"),
		mustQuery(t, "f4", "cat"),
		mustQuery(t, "ok", "cat"),
	}
	for run := 0; run < 5; run++ {
		batch, err := r.RetrieveTopK(context.Background(), "expanded", queries, 5, source)
		require.NoError(t, err)
		assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, batch.Fallbacks())
		assert.False(t, batch.Outcomes["ok"].Expansion.Fallback)
		assert.Contains(t, sortedIDs(batch.Results["ok"]), "d4")
	}
}

func TestBaselineMatchesDirectScoring(t *testing.T) {
	r := newRetriever(t, nil)
	q := mustQuery(t, "q1", "cat feline")
	batch, err := r.RetrieveTopK(context.Background(), "baseline", []parser.Query{q}, 10, expansion.Identity{})
	require.NoError(t, err)
	assert.Equal(t, r.Scorer().Score(parser.Identity(q), r.Index()), batch.Results["q1"])
}

func TestRetrieveTopKKeepsFirstDuplicate(t *testing.T) {
	r := newRetriever(t, nil)
	batch, err := r.RetrieveTopK(context.Background(), "baseline",
		[]parser.Query{mustQuery(t, "q1", "cat"), mustQuery(t, "q1", "bird")}, 5, expansion.Identity{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, sortedIDs(batch.Results["q1"]))
}

func TestRetrieveTopKCancelled(t *testing.T) {
	r := newRetriever(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RetrieveTopK(ctx, "baseline", []parser.Query{mustQuery(t, "q1", "cat")}, 5, expansion.Identity{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPool(t *testing.T) {
	base := NewBatch("baseline", 3)
	base.Results["q1"] = ranker.RankedResult{{DocID: "d2", Score: 3}, {DocID: "d1", Score: 2}, {DocID: "d9", Score: 1}}
	exp := NewBatch("expanded", 3)
	exp.Results["q1"] = ranker.RankedResult{{DocID: "d1", Score: 5}, {DocID: "d4", Score: 4}}
	exp.Results["q0"] = ranker.RankedResult{{DocID: "d3", Score: 1}}

	pool := BuildPool(2, base, exp)
	assert.Equal(t, []PoolEntry{
		{QID: "q0", DocID: "d3", Sources: []string{"expanded"}},
		{QID: "q1", DocID: "d1", Sources: []string{"baseline", "expanded"}},
		{QID: "q1", DocID: "d2", Sources: []string{"baseline"}},
		{QID: "q1", DocID: "d4", Sources: []string{"expanded"}},
	}, pool)
}

func TestRandomRunIsReproducible(t *testing.T) {
	docs := []string{"a", "b", "c", "d", "e", "f"}
	queries := []parser.Query{{QID: "q1"}, {QID: "q2"}}
	x := RandomRun(docs, queries, 4, 42)
	y := RandomRun(docs, []parser.Query{queries[1], queries[0]}, 4, 42)
	assert.Equal(t, x.Results, y.Results)

	list := x.Results["q1"]
	require.Len(t, list, 4)
	seen := map[string]bool{}
	for i, d := range list {
		assert.False(t, seen[d.DocID])
		seen[d.DocID] = true
		if i > 0 {
			assert.Greater(t, list[i-1].Score, d.Score)
		}
	}

	small := RandomRun(docs[:2], queries, 4, 42)
	assert.Len(t, small.Results["q1"], 2)
}

func TestFuseBatches(t *testing.T) {
	a := NewBatch("baseline", 2)
	a.Results["q1"] = ranker.RankedResult{{DocID: "d1"}, {DocID: "d2"}}
	a.Outcomes["q1"] = QueryOutcome{Hits: 2}
	a.Fail("q2", apperrors.Validationf("empty"))
	b := NewBatch("expanded", 2)
	b.Results["q1"] = ranker.RankedResult{{DocID: "d2"}, {DocID: "d3"}}
	b.Outcomes["q1"] = QueryOutcome{Hits: 2}
	b.Fail("q2", apperrors.Validationf("empty"))

	fused := FuseBatches(60, 2, a, b)
	assert.Equal(t, VariantFused, fused.Variant)
	assert.Equal(t, []string{"d2", "d1"}, fused.Results["q1"].DocIDs())
	assert.Equal(t, []string{"q2"}, fused.Failures())
}

func sortedIDs(r ranker.RankedResult) []string {
	ids := r.DocIDs()
	sort.Strings(ids)
	return ids
}
