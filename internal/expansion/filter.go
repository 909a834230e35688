package expansion

import (
	"context"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
)

// Filter cleans raw source output before scoring.
type Filter struct {
	// MaxTerms caps the expansion terms kept per query; <= 0 keeps all.
	MaxTerms int
}

// Apply normalizes every expansion term with the index tokenizer, drops
// terms that do not reduce to exactly one index term, repeat a base term,
// or carry a non-finite or non-positive weight, merges duplicates by
// keeping the larger weight, and keeps the MaxTerms heaviest terms (term
// order breaks ties).
func (f Filter) Apply(eq parser.ExpandedQuery) parser.ExpandedQuery {
	base := make(map[string]struct{}, len(eq.BaseTerms))
	for _, t := range eq.BaseTerms {
		base[t] = struct{}{}
	}
	merged := make(map[string]float64, len(eq.ExpansionTerms))
	for raw, w := range eq.ExpansionTerms {
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		term, ok := tokenizer.Normalize(raw)
		if !ok {
			continue
		}
		if _, isBase := base[term]; isBase {
			continue
		}
		if w > merged[term] {
			merged[term] = w
		}
	}

	if f.MaxTerms > 0 && len(merged) > f.MaxTerms {
		terms := make([]string, 0, len(merged))
		for t := range merged {
			terms = append(terms, t)
		}
		sort.Slice(terms, func(i, j int) bool {
			if merged[terms[i]] != merged[terms[j]] {
				return merged[terms[i]] > merged[terms[j]]
			}
			return terms[i] < terms[j]
		})
		for _, t := range terms[f.MaxTerms:] {
			delete(merged, t)
		}
	}
	return parser.ExpandedQuery{
		QID:            eq.QID,
		BaseTerms:      append([]string(nil), eq.BaseTerms...),
		ExpansionTerms: merged,
	}
}

// Filtered applies f to every expansion produced by inner.
func Filtered(inner Expander, f Filter) Expander {
	return Func(func(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error) {
		eq, err := inner.Expand(ctx, q)
		if err != nil {
			return eq, err
		}
		return f.Apply(eq), nil
	})
}
