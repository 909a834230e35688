package expansion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

const maxResponseBytes = 1 << 20

type remoteRequest struct {
	QID   string   `json:"qid"`
	Query string   `json:"query"`
	Terms []string `json:"terms"`
}

type remoteResponse struct {
	Terms []struct {
		Term   string   `json:"term"`
		Weight *float64 `json:"weight"`
	} `json:"terms"`
}

// Remote asks an HTTP term-suggestion service for expansion terms. It POSTs
// {qid, query, terms} to the configured URL and expects
// {"terms": [{"term": ..., "weight": ...}]}. Any transport error, non-2xx
// status or malformed body is an ExpansionFailure. Remote does not retry;
// wrap it in Guarded for timeouts and fallback.
type Remote struct {
	url           string
	client        *http.Client
	defaultWeight float64
	logger        *slog.Logger
}

func NewRemote(url string, client *http.Client, defaultWeight float64) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{
		url:           url,
		client:        client,
		defaultWeight: defaultWeight,
		logger:        slog.Default().With("component", "remote-expander"),
	}
}

func (r *Remote) Expand(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	body, err := json.Marshal(remoteRequest{QID: q.QID, Query: q.RawText, Terms: q.Terms})
	if err != nil {
		return parser.ExpandedQuery{}, fmt.Errorf("marshaling expansion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return parser.ExpandedQuery{}, apperrors.Expansionf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return parser.ExpandedQuery{}, ctx.Err()
		}
		return parser.ExpandedQuery{}, apperrors.Expansionf("calling %s: %v", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return parser.ExpandedQuery{}, apperrors.Expansionf("%s returned status %d", r.url, resp.StatusCode)
	}
	var decoded remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return parser.ExpandedQuery{}, apperrors.Expansionf("malformed response from %s: %v", r.url, err)
	}

	terms := make(map[string]float64, len(decoded.Terms))
	for _, t := range decoded.Terms {
		w := r.defaultWeight
		if t.Weight != nil {
			w = *t.Weight
		}
		if w > terms[t.Term] {
			terms[t.Term] = w
		}
	}
	r.logger.Debug("remote expansion received", "qid", q.QID, "terms", len(terms))
	return parser.Expand(q, terms), nil
}
