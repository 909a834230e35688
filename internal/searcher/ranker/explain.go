package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
)

// TermContribution is one term's share of a document score.
type TermContribution struct {
	Term         string  `json:"term"`
	Weight       float64 `json:"weight"`
	TF           int     `json:"tf"`
	DF           int     `json:"df"`
	IDF          float64 `json:"idf"`
	TFNorm       float64 `json:"tf_norm"`
	Contribution float64 `json:"contribution"`
}

// Explanation breaks a document's score down per query term.
type Explanation struct {
	DocID        string             `json:"doc_id"`
	DocLength    int                `json:"doc_length"`
	AvgDocLength float64            `json:"avg_doc_length"`
	Params       Params             `json:"params"`
	Score        float64            `json:"score"`
	Terms        []TermContribution `json:"terms"`
}

// Explain scores a single document and reports each term's contribution.
// Terms absent from the document are listed with zero contribution. An
// unindexed docID returns a NotFound error.
func (s *Scorer) Explain(eq parser.ExpandedQuery, idx Index, docID string) (*Explanation, error) {
	dl, err := idx.DocumentLength(docID)
	if err != nil {
		return nil, err
	}
	avgdl := idx.AverageDocumentLength()
	n := idx.DocumentCount()
	exp := &Explanation{
		DocID:        docID,
		DocLength:    dl,
		AvgDocLength: avgdl,
		Params:       s.params,
	}
	for _, wt := range eq.WeightedTerms() {
		postings := idx.Postings(wt.Term)
		tc := TermContribution{Term: wt.Term, Weight: wt.Weight, DF: len(postings)}
		for _, p := range postings {
			if p.DocID == docID {
				tc.TF = p.Frequency
				break
			}
		}
		if tc.TF > 0 {
			tc.IDF = IDF(n, tc.DF)
			tc.TFNorm = s.tfNorm(float64(tc.TF), float64(dl), avgdl)
			tc.Contribution = wt.Weight * tc.IDF * tc.TFNorm
			exp.Score += tc.Contribution
		}
		exp.Terms = append(exp.Terms, tc)
	}
	return exp, nil
}
