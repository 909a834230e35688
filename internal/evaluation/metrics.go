package evaluation

import (
	"math"
)

// Metric names used in reports.
const (
	MetricPrecision = "precision_at_k"
	MetricRecall    = "recall_at_k"
	MetricNDCG      = "ndcg_at_k"
	MetricMAP       = "map"
)

// MetricNames lists report metrics in display order.
var MetricNames = []string{MetricPrecision, MetricRecall, MetricNDCG, MetricMAP}

// PrecisionAtK is the number of documents with label >= 1 among the first
// k of ranked, divided by k. Short lists are not padded in the numerator
// but still divide by k.
func PrecisionAtK(ranked []string, labels map[string]int, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(relevantInTop(ranked, labels, k)) / float64(k)
}

// RecallAtK is the share of qid's relevant documents found in the first k.
// It is 0 when nothing is relevant.
func RecallAtK(ranked []string, labels map[string]int, k int) float64 {
	total := countRelevant(labels)
	if total == 0 {
		return 0
	}
	return float64(relevantInTop(ranked, labels, k)) / float64(total)
}

// DCGAtK sums (2^label - 1) / log2(rank + 1) over ranks 1..k. Unjudged
// documents keep their rank and gain nothing.
func DCGAtK(ranked []string, labels map[string]int, k int) float64 {
	var dcg float64
	for i, doc := range top(ranked, k) {
		dcg += gain(labels[doc]) / math.Log2(float64(i+2))
	}
	return dcg
}

// NDCGAtK divides DCG@k by the DCG@k of the judged labels sorted
// descending. It is 0 when no judged document has label >= 1.
func NDCGAtK(ranked []string, labels map[string]int, ideal []int, k int) float64 {
	var idcg float64
	for i, l := range ideal {
		if i >= k {
			break
		}
		idcg += gain(l) / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return DCGAtK(ranked, labels, k) / idcg
}

// AveragePrecision averages precision at the rank of each relevant hit over
// all relevant documents for the query. The second result is false when
// the query has no relevant judgments and must be left out of MAP.
func AveragePrecision(ranked []string, labels map[string]int) (float64, bool) {
	total := countRelevant(labels)
	if total == 0 {
		return 0, false
	}
	var hits int
	var sum float64
	for i, doc := range ranked {
		if labels[doc] >= LabelPartial {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(total), true
}

func gain(label int) float64 {
	if label <= 0 {
		return 0
	}
	return math.Exp2(float64(label)) - 1
}

func top(ranked []string, k int) []string {
	if k < len(ranked) {
		return ranked[:k]
	}
	return ranked
}

func relevantInTop(ranked []string, labels map[string]int, k int) int {
	n := 0
	for _, doc := range top(ranked, k) {
		if labels[doc] >= LabelPartial {
			n++
		}
	}
	return n
}

func countRelevant(labels map[string]int) int {
	n := 0
	for _, l := range labels {
		if l >= LabelPartial {
			n++
		}
	}
	return n
}
