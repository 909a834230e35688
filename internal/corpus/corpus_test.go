package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

func TestDocumentAcceptsAlternateFieldNames(t *testing.T) {
	in := `{"id":"d1","title":"A","contents":"body one"}
{"_id":"d2","title":"B","text":"body two"}

`
	docs, err := ReadJSONL[Document](strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Document{
		{ID: "d1", Title: "A", Text: "body one"},
		{ID: "d2", Title: "B", Text: "body two"},
	}, docs)
}

func TestReadJSONLReportsLine(t *testing.T) {
	_, err := ReadJSONL[QueryRecord](strings.NewReader("{\"qid\":\"q1\"}\n{bad\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "line 2")
}

func TestValidateCorpus(t *testing.T) {
	tests := []struct {
		name string
		docs []Document
	}{
		{"empty", nil},
		{"empty id", []Document{{ID: "", Text: "x"}}},
		{"padded id", []Document{{ID: " d1", Text: "x"}}},
		{"duplicate", []Document{{ID: "d1"}, {ID: "d2"}, {ID: "d1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateCorpus(tt.docs), apperrors.ErrCorpus)
		})
	}
	assert.NoError(t, ValidateCorpus([]Document{{ID: "d1"}, {ID: "d2", Text: "body"}}))
}

func TestWriteThenLoadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.jsonl")
	want := []QueryRecord{{QID: "q1", Query: "feline"}, {QID: "q2", Query: "canine"}}
	require.NoError(t, CreateJSONL(path, want))

	got, err := LoadQueries(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadQueriesRejectsDuplicateQID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"qid\":\"q1\",\"query\":\"a\"}\n{\"qid\":\"q1\",\"query\":\"b\"}\n"), 0o644))
	_, err := LoadQueries(path)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestWriteJSONLDoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, []QueryRecord{{QID: "q1", Query: "a<b"}}))
	assert.Equal(t, "{\"qid\":\"q1\",\"query\":\"a<b\"}\n", buf.String())
}
