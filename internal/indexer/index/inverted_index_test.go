package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

func buildFrom(t *testing.T, shards ...map[string]string) *InvertedIndex {
	t.Helper()
	parts := make([]*Partial, 0, len(shards))
	for _, docs := range shards {
		p := NewPartial()
		for id, text := range docs {
			require.NoError(t, p.AddDocument(id, "", text))
		}
		parts = append(parts, p)
	}
	idx, err := Merge(parts...)
	require.NoError(t, err)
	return idx
}

func TestMergeStatistics(t *testing.T) {
	idx := buildFrom(t,
		map[string]string{"d1": "cat cat dog"},
		map[string]string{"d2": "dog bird", "d3": "the cat sat quietly"},
	)

	assert.Equal(t, 3, idx.DocumentCount())
	assert.Equal(t, []string{"d1", "d2", "d3"}, idx.DocIDs())

	l, err := idx.DocumentLength("d3")
	require.NoError(t, err)
	assert.Equal(t, 3, l)

	assert.Equal(t, PostingList{{DocID: "d1", Frequency: 2}, {DocID: "d3", Frequency: 1}}, idx.Postings("cat"))
	assert.Equal(t, 2, idx.DocumentFrequency("dog"))
	assert.Empty(t, idx.Postings("unicorn"))
	assert.Equal(t, 0, idx.DocumentFrequency("unicorn"))
}

func TestAverageDocumentLengthIsExactMean(t *testing.T) {
	idx := buildFrom(t,
		map[string]string{"a": "one two three", "b": "four"},
		map[string]string{"c": "five six seven eight nine ten eleven"},
	)
	var sum int
	for _, ds := range idx.DocLengths() {
		sum += ds.DocLen
	}
	assert.Equal(t, float64(sum)/float64(idx.DocumentCount()), idx.AverageDocumentLength())
	assert.Equal(t, int64(sum), idx.TotalTokens())
}

func TestDocumentLengthUnknownDoc(t *testing.T) {
	idx := buildFrom(t, map[string]string{"d1": "cat"})
	_, err := idx.DocumentLength("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := map[string]string{"d1": "alpha beta", "d4": "gamma alpha"}
	b := map[string]string{"d2": "beta beta delta"}
	c := map[string]string{"d3": "delta alpha epsilon"}

	x := buildFrom(t, a, b, c)
	y := buildFrom(t, c, a, b)

	assert.Equal(t, x.Snapshot(), y.Snapshot())
	assert.Equal(t, x.DocLengths(), y.DocLengths())
	assert.Equal(t, x.AverageDocumentLength(), y.AverageDocumentLength())
}

func TestMergeRejectsOverlappingShards(t *testing.T) {
	p1 := NewPartial()
	require.NoError(t, p1.AddDocument("d1", "", "cat"))
	p2 := NewPartial()
	require.NoError(t, p2.AddDocument("d1", "", "dog"))

	_, err := Merge(p1, p2)
	assert.ErrorIs(t, err, apperrors.ErrCorpus)
}

func TestMergeEmpty(t *testing.T) {
	_, err := Merge(NewPartial())
	assert.ErrorIs(t, err, apperrors.ErrCorpus)
}

func TestPartialRejectsDuplicate(t *testing.T) {
	p := NewPartial()
	require.NoError(t, p.AddDocument("d1", "", "cat"))
	assert.ErrorIs(t, p.AddDocument("d1", "", "dog"), apperrors.ErrCorpus)
}

func TestStopWordOnlyDocumentHasZeroLength(t *testing.T) {
	idx := buildFrom(t, map[string]string{"d1": "cat", "d2": "the and of"})
	l, err := idx.DocumentLength("d2")
	require.NoError(t, err)
	assert.Equal(t, 0, l)
	assert.Equal(t, 2, idx.DocumentCount())
	assert.Equal(t, 0.5, idx.AverageDocumentLength())
}

func TestNewValidatesPostings(t *testing.T) {
	lengths := []DocStats{{DocID: "d1", DocLen: 1}, {DocID: "d2", DocLen: 1}}
	tests := []struct {
		name    string
		entries []TermEntry
	}{
		{"zero frequency", []TermEntry{{Term: "cat", Postings: PostingList{{DocID: "d1", Frequency: 0}}}}},
		{"unsorted postings", []TermEntry{{Term: "cat", Postings: PostingList{{DocID: "d2", Frequency: 1}, {DocID: "d1", Frequency: 1}}}}},
		{"unknown doc", []TermEntry{{Term: "cat", Postings: PostingList{{DocID: "d9", Frequency: 1}}}}},
		{"unsorted terms", []TermEntry{
			{Term: "dog", Postings: PostingList{{DocID: "d1", Frequency: 1}}},
			{Term: "cat", Postings: PostingList{{DocID: "d2", Frequency: 1}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries, lengths)
			assert.ErrorIs(t, err, apperrors.ErrCorpus)
		})
	}
}

func TestReadersReturnCopies(t *testing.T) {
	idx := buildFrom(t, map[string]string{"d1": "cat"})
	pl := idx.Postings("cat")
	pl[0].Frequency = 99
	assert.Equal(t, 1, idx.Postings("cat")[0].Frequency)
}
