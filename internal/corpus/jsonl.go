package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

const maxLineBytes = 16 << 20

// ReadJSONL decodes one T per non-blank line of r. A malformed line is
// reported with its line number.
func ReadJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var out []T
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, apperrors.Validationf("line %d: %v", line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading jsonl: %w", err)
	}
	return out, nil
}

// WriteJSONL encodes each record on its own line.
func WriteJSONL[T any](w io.Writer, records []T) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func readFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	recs, err := ReadJSONL[T](f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// LoadDocuments reads and validates a corpus file.
func LoadDocuments(path string) ([]Document, error) {
	docs, err := readFile[Document](path)
	if err != nil {
		return nil, err
	}
	if err := ValidateCorpus(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadQueries reads a queries file. Records with an empty qid are rejected;
// empty query text is left for the parser to report per query.
func LoadQueries(path string) ([]QueryRecord, error) {
	recs, err := readFile[QueryRecord](path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(recs))
	for i, rec := range recs {
		if strings.TrimSpace(rec.QID) == "" {
			return nil, apperrors.Validationf("%s: record %d has no qid", path, i+1)
		}
		if _, dup := seen[rec.QID]; dup {
			return nil, apperrors.Validationf("%s: duplicate qid %q", path, rec.QID)
		}
		seen[rec.QID] = struct{}{}
	}
	return recs, nil
}

// CreateJSONL writes records to path, replacing any existing file.
func CreateJSONL[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteJSONL(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadJSONL reads any JSONL file into T records without extra validation.
func LoadJSONL[T any](path string) ([]T, error) {
	return readFile[T](path)
}
