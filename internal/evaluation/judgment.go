package evaluation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Relevance labels.
const (
	LabelNonRelevant = 0
	LabelPartial     = 1
	LabelHigh        = 2
)

// Judgment is one qrels line: how relevant DocID is to QID.
type Judgment struct {
	QID   string `json:"qid"`
	DocID string `json:"doc_id"`
	Label int    `json:"relevance"`
}

func (j Judgment) Validate() error {
	switch {
	case j.QID == "":
		return apperrors.Validationf("judgment has empty qid")
	case j.DocID == "":
		return apperrors.Validationf("judgment for qid %q has empty doc_id", j.QID)
	case j.Label < LabelNonRelevant || j.Label > LabelHigh:
		return apperrors.Validationf("judgment (%s, %s): label %d outside {0,1,2}", j.QID, j.DocID, j.Label)
	}
	return nil
}

// MergePolicy decides the label kept when a (qid, doc_id) pair is judged
// more than once.
type MergePolicy string

const (
	MergeLastWrite MergePolicy = "last-write"
	MergeMax       MergePolicy = "max"
	MergeMin       MergePolicy = "min"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch p := MergePolicy(s); p {
	case MergeLastWrite, MergeMax, MergeMin:
		return p, nil
	case "":
		return MergeLastWrite, nil
	default:
		return "", apperrors.InvalidConfigf("unknown judgment merge policy %q", s)
	}
}

func (p MergePolicy) merge(old, next int) int {
	switch p {
	case MergeMax:
		return max(old, next)
	case MergeMin:
		return min(old, next)
	default:
		return next
	}
}

// Rejected is a judgment dropped at load time and the reason.
type Rejected struct {
	Judgment Judgment `json:"judgment"`
	Reason   string   `json:"reason"`
}

// Qrels is the validated, merged judgment table. It is read-only once
// built.
type Qrels struct {
	labels    map[string]map[string]int
	policy    MergePolicy
	rejected  []Rejected
	conflicts int
}

// NewQrels validates and merges judgments. Invalid records are dropped
// one by one and returned as a joined ValidationError; the returned Qrels
// holds every valid record and is never nil.
func NewQrels(judgments []Judgment, policy MergePolicy) (*Qrels, error) {
	q := &Qrels{labels: make(map[string]map[string]int), policy: policy}
	var errs []error
	for _, j := range judgments {
		if err := j.Validate(); err != nil {
			q.rejected = append(q.rejected, Rejected{Judgment: j, Reason: err.Error()})
			errs = append(errs, err)
			continue
		}
		docs, ok := q.labels[j.QID]
		if !ok {
			docs = make(map[string]int)
			q.labels[j.QID] = docs
		}
		if old, seen := docs[j.DocID]; seen {
			q.conflicts++
			docs[j.DocID] = policy.merge(old, j.Label)
			continue
		}
		docs[j.DocID] = j.Label
	}
	return q, errors.Join(errs...)
}

// LoadJudgments reads a qrels JSONL file.
func LoadJudgments(path string) ([]Judgment, error) {
	js, err := corpus.LoadJSONL[Judgment](path)
	if err != nil {
		return nil, fmt.Errorf("loading judgments: %w", err)
	}
	return js, nil
}

// Label returns the label of (qid, docID); unjudged pairs are 0.
func (q *Qrels) Label(qid, docID string) int {
	return q.labels[qid][docID]
}

// Judged returns a copy of qid's labels.
func (q *Qrels) Judged(qid string) map[string]int {
	out := make(map[string]int, len(q.labels[qid]))
	for d, l := range q.labels[qid] {
		out[d] = l
	}
	return out
}

// Relevant counts qid's documents with label >= 1.
func (q *Qrels) Relevant(qid string) int {
	n := 0
	for _, l := range q.labels[qid] {
		if l >= LabelPartial {
			n++
		}
	}
	return n
}

func (q *Qrels) Has(qid string) bool {
	_, ok := q.labels[qid]
	return ok
}

// QIDs returns every judged qid, sorted.
func (q *Qrels) QIDs() []string {
	ids := make([]string, 0, len(q.labels))
	for id := range q.labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of distinct (qid, doc_id) pairs.
func (q *Qrels) Len() int {
	n := 0
	for _, docs := range q.labels {
		n += len(docs)
	}
	return n
}

func (q *Qrels) Policy() MergePolicy { return q.policy }

func (q *Qrels) Rejected() []Rejected { return q.rejected }

// Conflicts counts pairs judged more than once.
func (q *Qrels) Conflicts() int { return q.conflicts }

// idealLabels returns qid's labels sorted descending.
func (q *Qrels) idealLabels(qid string) []int {
	labels := make([]int, 0, len(q.labels[qid]))
	for _, l := range q.labels[qid] {
		labels = append(labels, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(labels)))
	return labels
}
