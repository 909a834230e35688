package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Partial accumulates postings and document lengths for one shard of the
// corpus. A Partial is owned by a single build worker and is never shared,
// so it carries no lock; partials are combined by Merge.
type Partial struct {
	postings    map[string]map[string]int
	docLengths  map[string]int
	totalTokens int64
}

func NewPartial() *Partial {
	return &Partial{
		postings:   make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

// AddDocument tokenizes title and text together and records every term
// frequency plus the document length in tokens.
func (p *Partial) AddDocument(docID string, title string, text string) error {
	if _, exists := p.docLengths[docID]; exists {
		return apperrors.Corpusf("duplicate doc_id %q", docID)
	}
	tokens := tokenizer.Tokenize(title + " " + text)
	for _, token := range tokens {
		docs, ok := p.postings[token.Term]
		if !ok {
			docs = make(map[string]int)
			p.postings[token.Term] = docs
		}
		docs[docID]++
	}
	p.docLengths[docID] = len(tokens)
	p.totalTokens += int64(len(tokens))
	return nil
}

func (p *Partial) DocCount() int {
	return len(p.docLengths)
}

func (p *Partial) TermCount() int {
	return len(p.postings)
}

func (p *Partial) TotalTokens() int64 {
	return p.totalTokens
}

// Snapshot returns the partial's postings sorted by term, each posting list
// sorted by DocID.
func (p *Partial) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(p.postings))
	for term, docs := range p.postings {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func sortedPostings(docs map[string]int) PostingList {
	postings := make(PostingList, 0, len(docs))
	for docID, freq := range docs {
		postings = append(postings, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return postings
}
