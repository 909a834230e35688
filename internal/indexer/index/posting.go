package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     string `json:"doc_id" cbor:"1,keyasint"`
	Frequency int    `json:"tf" cbor:"2,keyasint"`
}

// PostingList is ordered by DocID ascending, holds each DocID at most once
// and never stores a zero frequency.
type PostingList []Posting

type TermEntry struct {
	Term     string      `json:"term" cbor:"1,keyasint"`
	Postings PostingList `json:"postings" cbor:"2,keyasint"`
}

// DocStats is one row of the document-length table.
type DocStats struct {
	DocID  string `json:"doc_id" cbor:"1,keyasint"`
	DocLen int    `json:"doc_len" cbor:"2,keyasint"`
}
