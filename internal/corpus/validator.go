package corpus

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

const (
	maxIDLength    = 512
	maxTitleLength = 4096
	maxTextLength  = 8 << 20
)

// FieldErrors holds per-field validation failures for one record.
type FieldErrors map[string]string

func (f FieldErrors) String() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, f[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateDocument checks a single document. An empty body is allowed; the
// document is indexed with length zero.
func ValidateDocument(doc Document) error {
	errs := make(FieldErrors)
	id := strings.TrimSpace(doc.ID)
	switch {
	case id == "":
		errs["id"] = "id is required"
	case id != doc.ID:
		errs["id"] = "id must not have surrounding whitespace"
	case len(id) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	}
	if len(doc.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	if len(doc.Text) > maxTextLength {
		errs["contents"] = fmt.Sprintf("contents must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return apperrors.Corpusf("document %q: %s", doc.ID, errs)
	}
	return nil
}

// ValidateCorpus checks every document and the uniqueness of IDs. Any
// failure aborts the whole corpus.
func ValidateCorpus(docs []Document) error {
	if len(docs) == 0 {
		return apperrors.Corpusf("corpus is empty")
	}
	seen := make(map[string]int, len(docs))
	for i, doc := range docs {
		if err := ValidateDocument(doc); err != nil {
			return err
		}
		if first, dup := seen[doc.ID]; dup {
			return apperrors.Corpusf("duplicate doc_id %q at records %d and %d", doc.ID, first+1, i+1)
		}
		seen[doc.ID] = i
	}
	return nil
}
