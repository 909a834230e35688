package executor

import (
	"sort"
)

// PoolEntry is one (qid, doc) pair to be judged. It uses the qrels field
// names so a filled-in pool loads directly as judgments.
type PoolEntry struct {
	QID       string   `json:"qid"`
	DocID     string   `json:"doc_id"`
	Relevance int      `json:"relevance"`
	Sources   []string `json:"sources,omitempty"`
}

// BuildPool returns the union of every batch's top depth documents per
// qid, sorted by qid then doc ID, each with relevance 0 and the variants
// that retrieved it. depth <= 0 uses each batch's whole list.
func BuildPool(depth int, batches ...*Batch) []PoolEntry {
	type key struct{ qid, doc string }
	sources := make(map[key][]string)
	for _, b := range batches {
		if b == nil {
			continue
		}
		for qid, results := range b.Results {
			if depth > 0 {
				results = results.Top(depth)
			}
			for _, d := range results {
				k := key{qid, d.DocID}
				sources[k] = append(sources[k], b.Variant)
			}
		}
	}
	pool := make([]PoolEntry, 0, len(sources))
	for k, src := range sources {
		sort.Strings(src)
		pool = append(pool, PoolEntry{QID: k.qid, DocID: k.doc, Sources: src})
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].QID != pool[j].QID {
			return pool[i].QID < pool[j].QID
		}
		return pool[i].DocID < pool[j].DocID
	})
	return pool
}
