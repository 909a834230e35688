// Package corpus defines the document and query records read from JSONL
// files and the validation applied to them before indexing.
package corpus

import (
	"encoding/json"
)

// Document is one corpus record. Title and Text are indexed together.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"contents"`
}

// UnmarshalJSON accepts "_id" for the ID and "text" for the body as used by
// BEIR-style corpora, in addition to the canonical field names.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string `json:"id"`
		AltID    string `json:"_id"`
		Title    string `json:"title"`
		Contents string `json:"contents"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.ID = raw.ID
	if d.ID == "" {
		d.ID = raw.AltID
	}
	d.Title = raw.Title
	d.Text = raw.Contents
	if d.Text == "" {
		d.Text = raw.Text
	}
	return nil
}

// QueryRecord is one line of a queries file.
type QueryRecord struct {
	QID   string `json:"qid"`
	Query string `json:"query"`
}
