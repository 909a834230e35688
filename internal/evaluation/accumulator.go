package evaluation

import (
	"sort"
)

// accumulator collects per-query values for each metric and reduces them
// to means. Values are summed in qid order at the end, so the result does
// not depend on the order queries were added.
type accumulator struct {
	values map[string]map[string]float64
}

func newAccumulator() *accumulator {
	return &accumulator{values: make(map[string]map[string]float64)}
}

func (a *accumulator) add(metric, qid string, v float64) {
	m, ok := a.values[metric]
	if !ok {
		m = make(map[string]float64)
		a.values[metric] = m
	}
	m[qid] = v
}

func (a *accumulator) count(metric string) int {
	return len(a.values[metric])
}

// mean returns the metric's average, 0 when nothing was added.
func (a *accumulator) mean(metric string) float64 {
	byQID := a.values[metric]
	if len(byQID) == 0 {
		return 0
	}
	qids := make([]string, 0, len(byQID))
	for qid := range byQID {
		qids = append(qids, qid)
	}
	sort.Strings(qids)
	var sum float64
	for _, qid := range qids {
		sum += byQID[qid]
	}
	return sum / float64(len(qids))
}
