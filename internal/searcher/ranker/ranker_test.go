package ranker

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

const tolerance = 1e-9

func buildIndex(t *testing.T, docs ...corpus.Document) *index.InvertedIndex {
	t.Helper()
	idx, err := indexer.Build(context.Background(), docs)
	require.NoError(t, err)
	return idx
}

func mustQuery(t *testing.T, qid, text string) parser.Query {
	t.Helper()
	q, err := parser.Parse(qid, text)
	require.NoError(t, err)
	return q
}

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultParams())
	require.NoError(t, err)
	return s
}

func TestParamsValidate(t *testing.T) {
	for _, p := range []Params{{0, 0.75}, {-1, 0.75}, {1.2, 0}, {1.2, 1.01}, {math.NaN(), 0.5}} {
		_, err := NewScorer(p)
		assert.ErrorIs(t, err, apperrors.ErrInvalidConfig, "params %+v", p)
	}
	_, err := NewScorer(Params{K1: 1.2, B: 1})
	assert.NoError(t, err)
}

// Corpus {d1 "A" "cat dog", d2 "B" "dog bird", d3 "C" "fish"}. "a" is a stop
// word, so |d1| = 2, |d2| = 3, |d3| = 2 and avgdl = 7/3. For "dog", N = 3 and
// n = 2, so IDF = ln(1.5/2.5 + 1) = ln 1.6.
func TestScoreHandComputedScenario(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "d1", Title: "A", Text: "cat dog"},
		corpus.Document{ID: "d2", Title: "B", Text: "dog bird"},
		corpus.Document{ID: "d3", Title: "C", Text: "fish"},
	)
	require.InDelta(t, 7.0/3.0, idx.AverageDocumentLength(), tolerance)

	idf := math.Log(1.6)
	avgdl := 7.0 / 3.0
	want1 := idf * 2.2 / (1 + 1.2*(0.25+0.75*2/avgdl))
	want2 := idf * 2.2 / (1 + 1.2*(0.25+0.75*3/avgdl))

	got := newScorer(t).Score(parser.Identity(mustQuery(t, "q1", "dog")), idx)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].DocID)
	assert.Equal(t, "d2", got[1].DocID)
	assert.InDelta(t, want1, got[0].Score, tolerance)
	assert.InDelta(t, want2, got[1].Score, tolerance)
	assert.InDelta(t, 0.49917626830236755, got[0].Score, tolerance)
	assert.InDelta(t, 0.42081720292932145, got[1].Score, tolerance)
}

func TestScoreExcludesZeroOverlap(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "d1", Text: "apple banana"},
		corpus.Document{ID: "d2", Text: "banana cherry"},
		corpus.Document{ID: "d3", Text: "durian"},
	)
	got := newScorer(t).Score(parser.Identity(mustQuery(t, "q", "banana")), idx)
	assert.ElementsMatch(t, []string{"d1", "d2"}, got.DocIDs())

	got = newScorer(t).Score(parser.Identity(mustQuery(t, "q", "kiwi")), idx)
	assert.Empty(t, got)
}

func TestScoreTieBreakByDocID(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "z9", Text: "same words"},
		corpus.Document{ID: "a1", Text: "same words"},
		corpus.Document{ID: "m5", Text: "same words"},
		corpus.Document{ID: "x0", Text: "other"},
	)
	got := newScorer(t).Score(parser.Identity(mustQuery(t, "q", "same")), idx)
	require.Len(t, got, 3)
	assert.Equal(t, got[0].Score, got[2].Score)
	assert.Equal(t, []string{"a1", "m5", "z9"}, got.DocIDs())
}

func TestExpansionWeightScalesContribution(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "d1", Text: "dog"},
		corpus.Document{ID: "d2", Text: "puppy"},
		corpus.Document{ID: "d3", Text: "cat"},
	)
	s := newScorer(t)
	q := mustQuery(t, "q", "dog")

	full := s.Score(parser.Expand(q, map[string]float64{"puppy": 1}), idx)
	half := s.Score(parser.Expand(q, map[string]float64{"puppy": 0.5}), idx)

	byID := func(r RankedResult, id string) float64 {
		for _, d := range r {
			if d.DocID == id {
				return d.Score
			}
		}
		t.Fatalf("doc %s missing", id)
		return 0
	}
	assert.InDelta(t, byID(full, "d2")/2, byID(half, "d2"), tolerance)
	assert.InDelta(t, byID(full, "d1"), byID(half, "d1"), tolerance)
}

func TestIdentityExpansionScoresAsPlainBM25(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "d1", Title: "A", Text: "cat dog"},
		corpus.Document{ID: "d2", Title: "B", Text: "dog bird"},
		corpus.Document{ID: "d3", Title: "C", Text: "fish"},
	)
	eq, out := expansion.Run(context.Background(), expansion.Identity{}, mustQuery(t, "q1", "dog"))
	require.False(t, out.Fallback)
	require.True(t, eq.IsIdentity())

	got := newScorer(t).Score(eq, idx)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"d1", "d2"}, got.DocIDs())
	assert.InDelta(t, 0.49917626830236755, got[0].Score, tolerance)
	assert.InDelta(t, 0.42081720292932145, got[1].Score, tolerance)
}

func TestExplainMatchesScore(t *testing.T) {
	idx := buildIndex(t,
		corpus.Document{ID: "d1", Text: "cat dog dog"},
		corpus.Document{ID: "d2", Text: "dog bird"},
	)
	s := newScorer(t)
	eq := parser.Expand(mustQuery(t, "q", "dog cat"), map[string]float64{"bird": 0.4})
	ranked := s.Score(eq, idx)

	for _, d := range ranked {
		exp, err := s.Explain(eq, idx, d.DocID)
		require.NoError(t, err)
		assert.InDelta(t, d.Score, exp.Score, tolerance)
		assert.Len(t, exp.Terms, 3)
	}

	_, err := s.Explain(eq, idx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTop(t *testing.T) {
	r := RankedResult{{"a", 3}, {"b", 2}, {"c", 1}}
	assert.Len(t, r.Top(2), 2)
	assert.Len(t, r.Top(10), 3)
	assert.Empty(t, r.Top(0))
}
