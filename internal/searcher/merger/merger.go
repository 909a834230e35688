// Package merger combines ranked lists. Fuse implements reciprocal rank
// fusion, which scores each document by the sum of 1/(k + rank) over the
// lists it appears in.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
)

// DefaultFusionK is the usual RRF damping constant.
const DefaultFusionK = 60

// Fuse merges lists by reciprocal rank fusion and returns at most limit
// documents ordered by fused score, DocID ascending on ties. Ranks are
// 1-based. A limit <= 0 keeps every document.
func Fuse(lists []ranker.RankedResult, k int, limit int) ranker.RankedResult {
	if k <= 0 {
		k = DefaultFusionK
	}
	scores := make(map[string]float64)
	for _, list := range lists {
		for i, doc := range list {
			scores[doc.DocID] += 1.0 / float64(k+i+1)
		}
	}
	if limit <= 0 || limit > len(scores) {
		limit = len(scores)
	}
	h := make(scoredDocHeap, 0, limit+1)
	for docID, score := range scores {
		heap.Push(&h, ranker.ScoredDoc{DocID: docID, Score: score})
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	result := make(ranker.RankedResult, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ranker.ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on the final ranking order, so the worst
// kept document sits at the root.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
