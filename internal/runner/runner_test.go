package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

const synonyms = `
synonyms:
  car: [automobile]
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	th := filepath.Join(dir, "thesaurus.yaml")
	require.NoError(t, os.WriteFile(th, []byte(synonyms), 0o644))

	cfg := config.Default()
	cfg.Index.SegmentPath = filepath.Join(dir, "corpus.qxseg")
	cfg.Expansion.Source = "thesaurus"
	cfg.Expansion.ThesaurusPath = th
	cfg.Expansion.Timeout = 0
	return cfg
}

func writeSegment(t *testing.T, cfg *config.Config) {
	t.Helper()
	idx, err := indexer.Build(context.Background(), []corpus.Document{
		{ID: "d1", Text: "car engine repair"},
		{ID: "d2", Text: "automobile engine"},
		{ID: "d3", Text: "bicycle chain"},
	})
	require.NoError(t, err)
	require.NoError(t, segment.WriteFile(cfg.Index.SegmentPath, idx))
}

func TestParseVariants(t *testing.T) {
	got, err := ParseVariants("expanded, fused,random,expanded")
	require.NoError(t, err)
	assert.Equal(t, []string{"baseline", "expanded", "fused", "random"}, got)

	got, err = ParseVariants("")
	require.NoError(t, err)
	assert.Equal(t, []string{"baseline"}, got)

	_, err = ParseVariants("fused")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	_, err = ParseVariants("expanded,bogus")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestQueriesKeepsUnparseableRecords(t *testing.T) {
	qs := Queries([]corpus.QueryRecord{
		{QID: "q1", Query: "car repair"},
		{QID: "q2", Query: "the and of"},
	})
	require.Len(t, qs, 2)
	assert.Equal(t, []string{"car", "repair"}, qs[0].Terms)
	assert.Equal(t, "q2", qs[1].QID)
	assert.Empty(t, qs[1].Terms)
}

func TestRunVariants(t *testing.T) {
	cfg := testConfig(t)
	writeSegment(t, cfg)

	r, err := Open(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Index().DocumentCount())

	queries := Queries([]corpus.QueryRecord{
		{QID: "q1", Query: "car"},
		{QID: "q2", Query: "the"},
	})
	variants, err := ParseVariants("expanded,fused,random")
	require.NoError(t, err)

	batches, err := r.Run(context.Background(), queries, 2, variants)
	require.NoError(t, err)
	require.Len(t, batches, 4)

	base, exp, fused, random := batches[0], batches[1], batches[2], batches[3]
	assert.Equal(t, VariantBaseline, base.Variant)
	assert.Equal(t, []string{"d1"}, base.Results["q1"].DocIDs())
	assert.Equal(t, []string{"d1", "d2"}, exp.Results["q1"].DocIDs())
	assert.ElementsMatch(t, []string{"d1", "d2"}, fused.Results["q1"].DocIDs())
	assert.Len(t, random.Results["q1"], 2)

	for _, b := range batches[:3] {
		assert.Equal(t, []string{"q2"}, b.Failures(), "variant %s", b.Variant)
	}
	assert.Empty(t, random.Failures())
}

func TestOpenMissingSegment(t *testing.T) {
	cfg := testConfig(t)
	_, err := Open(cfg, nil, nil)
	assert.Error(t, err)
}
