package segment

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

var docs = []corpus.Document{
	{ID: "d1", Title: "Cats", Text: "cat cat dog"},
	{ID: "d2", Title: "", Text: "dog bird"},
	{ID: "d3", Title: "Pets", Text: "the cat sat"},
	{ID: "d4", Title: "", Text: "and the of"},
}

func build(t *testing.T) *index.InvertedIndex {
	t.Helper()
	idx, err := indexer.Build(context.Background(), docs)
	require.NoError(t, err)
	return idx
}

func TestRebuildProducesIdenticalBytes(t *testing.T) {
	a, err := Bytes(build(t))
	require.NoError(t, err)
	b, err := Bytes(build(t))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestWriteReadFile(t *testing.T) {
	want := build(t)
	path := filepath.Join(t.TempDir(), "nested", "corpus.qxseg")
	require.NoError(t, WriteFile(path, want))

	got, header, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), header.DocCount)
	assert.Equal(t, want.Snapshot(), got.Snapshot())
	assert.Equal(t, want.DocLengths(), got.DocLengths())
	assert.Equal(t, want.AverageDocumentLength(), got.AverageDocumentLength())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDecodeRejectsCorruption(t *testing.T) {
	data, err := Bytes(build(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"flipped body byte", func(b []byte) []byte { b[HeaderSize+1] ^= 0x01; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupt := tt.mutate(append([]byte(nil), data...))
			_, _, err := Decode(bytes.NewReader(corrupt))
			assert.ErrorIs(t, err, apperrors.ErrCorpus)
		})
	}
}
