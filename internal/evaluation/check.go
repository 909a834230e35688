package evaluation

import (
	"sort"
)

// CheckReport summarises problems in a judgment set before it is used.
type CheckReport struct {
	Judgments         int            `json:"judgments"`
	DistinctQIDs      int            `json:"distinct_qids"`
	Queries           int            `json:"queries"`
	Documents         int            `json:"documents"`
	UnknownQIDs       []string       `json:"unknown_qids,omitempty"`
	UnknownDocIDs     []string       `json:"unknown_doc_ids,omitempty"`
	BadLabels         map[int]int    `json:"bad_labels,omitempty"`
	LabelCounts       map[int]int    `json:"label_counts"`
	RelevantPerQuery  map[string]int `json:"relevant_per_query"`
	NoRelevant        []string       `json:"no_relevant,omitempty"`
	Unjudged          []string       `json:"unjudged,omitempty"`
	ExpectedJudgments int            `json:"expected_judgments,omitempty"`
}

// OK reports whether the judgments reference only known queries and
// documents and carry only valid labels.
func (c *CheckReport) OK() bool {
	return len(c.UnknownQIDs) == 0 && len(c.UnknownDocIDs) == 0 && len(c.BadLabels) == 0
}

// CheckJudgments cross-checks raw judgment records against the query set
// and the indexed documents. poolDepth, when positive, sets the expected
// judgment count to queries * poolDepth. Duplicate pairs are counted per
// record.
func CheckJudgments(judgments []Judgment, queryIDs []string, docIDs []string, poolDepth int) *CheckReport {
	queries := toSet(queryIDs)
	docs := toSet(docIDs)
	rep := &CheckReport{
		Judgments:        len(judgments),
		Queries:          len(queries),
		Documents:        len(docs),
		BadLabels:        make(map[int]int),
		LabelCounts:      make(map[int]int),
		RelevantPerQuery: make(map[string]int),
	}
	if poolDepth > 0 {
		rep.ExpectedJudgments = len(queries) * poolDepth
	}

	judged := make(map[string]struct{})
	unknownQ := make(map[string]struct{})
	unknownD := make(map[string]struct{})
	for _, j := range judgments {
		judged[j.QID] = struct{}{}
		if _, ok := queries[j.QID]; !ok {
			unknownQ[j.QID] = struct{}{}
		}
		if _, ok := docs[j.DocID]; !ok {
			unknownD[j.DocID] = struct{}{}
		}
		if j.Label < LabelNonRelevant || j.Label > LabelHigh {
			rep.BadLabels[j.Label]++
			continue
		}
		rep.LabelCounts[j.Label]++
		if _, ok := rep.RelevantPerQuery[j.QID]; !ok {
			rep.RelevantPerQuery[j.QID] = 0
		}
		if j.Label >= LabelPartial {
			rep.RelevantPerQuery[j.QID]++
		}
	}
	rep.DistinctQIDs = len(judged)
	rep.UnknownQIDs = sortedKeys(unknownQ)
	rep.UnknownDocIDs = sortedKeys(unknownD)
	for qid, n := range rep.RelevantPerQuery {
		if n == 0 {
			rep.NoRelevant = append(rep.NoRelevant, qid)
		}
	}
	sort.Strings(rep.NoRelevant)
	for qid := range queries {
		if _, ok := judged[qid]; !ok {
			rep.Unjudged = append(rep.Unjudged, qid)
		}
	}
	sort.Strings(rep.Unjudged)
	if len(rep.BadLabels) == 0 {
		rep.BadLabels = nil
	}
	return rep
}

func sortedKeys(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
