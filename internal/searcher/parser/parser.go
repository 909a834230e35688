// Package parser turns raw query text into the Query and ExpandedQuery
// values consumed by the scorer.
package parser

import (
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// BaseWeight is the implicit weight of every base query term.
const BaseWeight = 1.0

// Query is a tokenized user query. Terms keeps token order and duplicates.
type Query struct {
	QID     string   `json:"qid"`
	RawText string   `json:"query"`
	Terms   []string `json:"terms"`
}

// ExpandedQuery is a base term set plus weighted expansion terms. It is
// built from a Query and never shares mutable state with it.
type ExpandedQuery struct {
	QID            string             `json:"qid"`
	BaseTerms      []string           `json:"base_terms"`
	ExpansionTerms map[string]float64 `json:"expansion_terms"`
}

// WeightedTerm is one scoring term with its query weight.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Parse tokenizes text into a Query. A query with no surviving terms is a
// ValidationError for that query only.
func Parse(qid string, text string) (Query, error) {
	if strings.TrimSpace(qid) == "" {
		return Query{}, apperrors.Validationf("query has no qid")
	}
	terms := tokenizer.Terms(text)
	if len(terms) == 0 {
		return Query{}, apperrors.Validationf("query %q has no searchable terms", qid)
	}
	return Query{QID: qid, RawText: text, Terms: terms}, nil
}

// Identity returns q with no expansion terms.
func Identity(q Query) ExpandedQuery {
	return Expand(q, nil)
}

// Expand builds an ExpandedQuery from q and a copy of expansion. Entries
// that repeat a base term are dropped; the base weight always wins.
func Expand(q Query, expansion map[string]float64) ExpandedQuery {
	seen := make(map[string]struct{}, len(q.Terms))
	base := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		base = append(base, t)
	}
	sort.Strings(base)

	exp := make(map[string]float64, len(expansion))
	for t, w := range expansion {
		if _, isBase := seen[t]; isBase {
			continue
		}
		exp[t] = w
	}
	return ExpandedQuery{QID: q.QID, BaseTerms: base, ExpansionTerms: exp}
}

// Validate checks that every expansion weight is finite and positive.
func (e ExpandedQuery) Validate() error {
	if len(e.BaseTerms) == 0 {
		return apperrors.Validationf("query %q has no base terms", e.QID)
	}
	for t, w := range e.ExpansionTerms {
		if !(w > 0) || math.IsInf(w, 0) {
			return apperrors.Validationf("query %q: expansion term %q has weight %v", e.QID, t, w)
		}
	}
	return nil
}

// IsIdentity reports whether the query carries no expansion terms.
func (e ExpandedQuery) IsIdentity() bool {
	return len(e.ExpansionTerms) == 0
}

// WeightedTerms lists base terms at BaseWeight followed by expansion terms,
// each group in term order, so iteration is deterministic.
func (e ExpandedQuery) WeightedTerms() []WeightedTerm {
	out := make([]WeightedTerm, 0, len(e.BaseTerms)+len(e.ExpansionTerms))
	for _, t := range e.BaseTerms {
		out = append(out, WeightedTerm{Term: t, Weight: BaseWeight})
	}
	exp := make([]string, 0, len(e.ExpansionTerms))
	for t := range e.ExpansionTerms {
		exp = append(exp, t)
	}
	sort.Strings(exp)
	for _, t := range exp {
		out = append(out, WeightedTerm{Term: t, Weight: e.ExpansionTerms[t]})
	}
	return out
}
