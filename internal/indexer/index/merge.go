package index

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Merge reduces per-shard partials into one immutable index. The reduction
// is commutative: term frequencies are summed per (term, doc) and document
// length tables, which must be disjoint by DocID, are unioned. The result
// does not depend on the order of parts.
func Merge(parts ...*Partial) (*InvertedIndex, error) {
	merged := make(map[string]map[string]int)
	lengths := make(map[string]int)
	for _, part := range parts {
		if part == nil {
			continue
		}
		for docID, l := range part.docLengths {
			if _, dup := lengths[docID]; dup {
				return nil, apperrors.Corpusf("duplicate doc_id %q across shards", docID)
			}
			lengths[docID] = l
		}
		for term, docs := range part.postings {
			dst, ok := merged[term]
			if !ok {
				dst = make(map[string]int, len(docs))
				merged[term] = dst
			}
			for docID, freq := range docs {
				dst[docID] += freq
			}
		}
	}
	if len(lengths) == 0 {
		return nil, apperrors.Corpusf("corpus is empty")
	}

	entries := make([]TermEntry, 0, len(merged))
	for term, docs := range merged {
		entries = append(entries, TermEntry{Term: term, Postings: sortedPostings(docs)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})

	stats := make([]DocStats, 0, len(lengths))
	for docID, l := range lengths {
		stats = append(stats, DocStats{DocID: docID, DocLen: l})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].DocID < stats[j].DocID
	})
	return New(entries, stats)
}
