package executor

import (
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
)

// VariantFused names the reciprocal-rank-fusion run.
const VariantFused = "fused"

// FuseBatches combines the batches per qid with reciprocal rank fusion and
// keeps the top k. A qid present in any input is present in the output;
// it fails only if it failed in every input.
func FuseBatches(fusionK int, k int, batches ...*Batch) *Batch {
	out := NewBatch(VariantFused, k)
	for _, b := range batches {
		for qid, o := range b.Outcomes {
			prev, seen := out.Outcomes[qid]
			if !seen || (prev.Failed() && !o.Failed()) {
				out.Outcomes[qid] = QueryOutcome{Expansion: o.Expansion, Error: o.Error}
			}
		}
	}
	for qid, o := range out.Outcomes {
		if o.Failed() {
			continue
		}
		lists := make([]ranker.RankedResult, 0, len(batches))
		for _, b := range batches {
			if r, ok := b.Results[qid]; ok {
				lists = append(lists, r)
			}
		}
		fused := merger.Fuse(lists, fusionK, k)
		out.Results[qid] = fused
		o.Hits = len(fused)
		out.Outcomes[qid] = o
	}
	return out
}
