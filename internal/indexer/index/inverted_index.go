// Package index holds the inverted index and its corpus statistics. An
// InvertedIndex is immutable once constructed, so any number of goroutines
// may read it without locking.
package index

import (
	"slices"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// InvertedIndex maps terms to posting lists and carries the corpus
// statistics BM25 needs: document count, per-document length and the
// average document length computed once at construction.
type InvertedIndex struct {
	terms        []string
	postings     map[string]PostingList
	docIDs       []string
	docLengths   map[string]int
	totalTokens  int64
	avgDocLength float64
}

// New validates entries and lengths and builds an index from them. It is the
// single constructor used by Merge and by the segment reader. entries must
// be sorted by term; every posting must have Frequency >= 1, appear once per
// list in DocID order and refer to a document present in lengths.
func New(entries []TermEntry, lengths []DocStats) (*InvertedIndex, error) {
	if len(lengths) == 0 {
		return nil, apperrors.Corpusf("index has no documents")
	}
	idx := &InvertedIndex{
		terms:      make([]string, 0, len(entries)),
		postings:   make(map[string]PostingList, len(entries)),
		docIDs:     make([]string, 0, len(lengths)),
		docLengths: make(map[string]int, len(lengths)),
	}
	for _, ds := range lengths {
		if ds.DocID == "" {
			return nil, apperrors.Corpusf("empty doc_id in length table")
		}
		if _, dup := idx.docLengths[ds.DocID]; dup {
			return nil, apperrors.Corpusf("duplicate doc_id %q", ds.DocID)
		}
		if ds.DocLen < 0 {
			return nil, apperrors.Corpusf("negative length for doc_id %q", ds.DocID)
		}
		idx.docLengths[ds.DocID] = ds.DocLen
		idx.docIDs = append(idx.docIDs, ds.DocID)
		idx.totalTokens += int64(ds.DocLen)
	}
	sort.Strings(idx.docIDs)

	for i, entry := range entries {
		if i > 0 && entries[i-1].Term >= entry.Term {
			return nil, apperrors.Corpusf("terms out of order at %q", entry.Term)
		}
		if len(entry.Postings) == 0 {
			continue
		}
		for j, p := range entry.Postings {
			if p.Frequency < 1 {
				return nil, apperrors.Corpusf("term %q: non-positive frequency for doc %q", entry.Term, p.DocID)
			}
			if j > 0 && entry.Postings[j-1].DocID >= p.DocID {
				return nil, apperrors.Corpusf("term %q: postings out of order at doc %q", entry.Term, p.DocID)
			}
			if _, ok := idx.docLengths[p.DocID]; !ok {
				return nil, apperrors.Corpusf("term %q: doc %q has no length entry", entry.Term, p.DocID)
			}
		}
		idx.terms = append(idx.terms, entry.Term)
		idx.postings[entry.Term] = slices.Clone(entry.Postings)
	}
	idx.avgDocLength = float64(idx.totalTokens) / float64(len(idx.docIDs))
	return idx, nil
}

// Postings returns the posting list for term, or an empty list if the term
// was never indexed.
func (x *InvertedIndex) Postings(term string) PostingList {
	return slices.Clone(x.postings[term])
}

// DocumentFrequency is the number of documents containing term.
func (x *InvertedIndex) DocumentFrequency(term string) int {
	return len(x.postings[term])
}

// DocumentLength returns the token count of docID, or a NotFound error.
func (x *InvertedIndex) DocumentLength(docID string) (int, error) {
	l, ok := x.docLengths[docID]
	if !ok {
		return 0, apperrors.NotFoundf("doc_id %q is not indexed", docID)
	}
	return l, nil
}

func (x *InvertedIndex) DocumentCount() int {
	return len(x.docIDs)
}

func (x *InvertedIndex) AverageDocumentLength() float64 {
	return x.avgDocLength
}

func (x *InvertedIndex) TotalTokens() int64 {
	return x.totalTokens
}

// Terms returns every indexed term in ascending order.
func (x *InvertedIndex) Terms() []string {
	return slices.Clone(x.terms)
}

// DocIDs returns every indexed document ID in ascending order.
func (x *InvertedIndex) DocIDs() []string {
	return slices.Clone(x.docIDs)
}

// Snapshot returns the full term table sorted by term.
func (x *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for _, term := range x.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: slices.Clone(x.postings[term]),
		})
	}
	return entries
}

// DocLengths returns the document-length table sorted by DocID.
func (x *InvertedIndex) DocLengths() []DocStats {
	stats := make([]DocStats, 0, len(x.docIDs))
	for _, id := range x.docIDs {
		stats = append(stats, DocStats{DocID: id, DocLen: x.docLengths[id]})
	}
	return stats
}
