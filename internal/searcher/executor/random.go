package executor

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
)

// VariantRandom names the random sanity-floor run.
const VariantRandom = "random"

// RandomRun ranks k documents drawn uniformly without replacement for each
// query, ignoring its text. Each qid gets its own generator seeded from
// seed and the qid, so the run is reproducible and independent of query
// order. Scores descend from k to 1.
func RandomRun(docIDs []string, queries []parser.Query, k int, seed uint64) *Batch {
	batch := NewBatch(VariantRandom, k)
	n := k
	if n > len(docIDs) {
		n = len(docIDs)
	}
	for _, q := range queries {
		rng := rand.New(rand.NewPCG(seed, xxhash.Sum64String(q.QID)))
		perm := rng.Perm(len(docIDs))
		results := make(ranker.RankedResult, n)
		for i := 0; i < n; i++ {
			results[i] = ranker.ScoredDoc{DocID: docIDs[perm[i]], Score: float64(n - i)}
		}
		batch.Results[q.QID] = results
		batch.Outcomes[q.QID] = QueryOutcome{Hits: n}
	}
	return batch
}
