// Package executor runs queries against the index. RetrieveTopK scores a
// batch of queries on a bounded worker pool with per-query fault isolation:
// a query that fails is recorded in the batch and the rest carry on.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

// QueryOutcome is the per-query record kept alongside a run's results.
type QueryOutcome struct {
	Expansion expansion.Outcome `json:"expansion"`
	Hits      int               `json:"hits"`
	Error     string            `json:"error,omitempty"`
}

func (o QueryOutcome) Failed() bool {
	return o.Error != ""
}

// Batch is one run variant over a query set: each qid's ranked list
// truncated to K, plus what happened while producing it.
type Batch struct {
	Variant  string                         `json:"variant"`
	K        int                            `json:"k"`
	Results  map[string]ranker.RankedResult `json:"results"`
	Outcomes map[string]QueryOutcome        `json:"outcomes"`
}

func NewBatch(variant string, k int) *Batch {
	return &Batch{
		Variant:  variant,
		K:        k,
		Results:  make(map[string]ranker.RankedResult),
		Outcomes: make(map[string]QueryOutcome),
	}
}

// Fail records a failed query. It gets no ranked list.
func (b *Batch) Fail(qid string, err error) {
	delete(b.Results, qid)
	b.Outcomes[qid] = QueryOutcome{Error: err.Error()}
}

// QIDs returns every qid with an outcome, sorted.
func (b *Batch) QIDs() []string {
	ids := make([]string, 0, len(b.Outcomes))
	for qid := range b.Outcomes {
		ids = append(ids, qid)
	}
	sort.Strings(ids)
	return ids
}

// Fallbacks lists qids whose expansion fell back to identity.
func (b *Batch) Fallbacks() []string {
	var ids []string
	for _, qid := range b.QIDs() {
		if b.Outcomes[qid].Expansion.Fallback {
			ids = append(ids, qid)
		}
	}
	return ids
}

// Failures lists qids that produced no ranked list.
func (b *Batch) Failures() []string {
	var ids []string
	for _, qid := range b.QIDs() {
		if b.Outcomes[qid].Failed() {
			ids = append(ids, qid)
		}
	}
	return ids
}

type Retriever struct {
	idx         ranker.Index
	scorer      *ranker.Scorer
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a Retriever over idx. m may be nil.
func New(idx ranker.Index, scorer *ranker.Scorer, concurrency int, m *metrics.Metrics) *Retriever {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Retriever{
		idx:         idx,
		scorer:      scorer,
		concurrency: concurrency,
		metrics:     m,
		logger:      slog.Default().With("component", "retriever"),
	}
}

func (r *Retriever) Index() ranker.Index {
	return r.idx
}

func (r *Retriever) Scorer() *ranker.Scorer {
	return r.scorer
}

// Search expands and scores one query and returns the expanded query with
// its top k. Expansion failures never surface here; they show up as a
// fallback in the outcome.
func (r *Retriever) Search(ctx context.Context, q parser.Query, k int, exp expansion.Expander) (parser.ExpandedQuery, ranker.RankedResult, expansion.Outcome) {
	eq, outcome := expansion.Run(ctx, exp, q)
	return eq, r.scorer.Score(eq, r.idx).Top(k), outcome
}

// RetrieveTopK runs every query through exp and the scorer with at most
// the configured number of queries in flight. k <= 0 is a configuration
// error and fails the whole call; anything that goes wrong with a single
// query, including a panic in an expansion source, is recorded against
// that qid only. Queries with fewer than k matches return what they have.
func (r *Retriever) RetrieveTopK(ctx context.Context, variant string, queries []parser.Query, k int, exp expansion.Expander) (*Batch, error) {
	if k <= 0 {
		return nil, apperrors.InvalidConfigf("k must be > 0, got %d", k)
	}
	type slot struct {
		results ranker.RankedResult
		outcome QueryOutcome
	}
	slots := make([]slot, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, out, err := r.runOne(gctx, variant, q, k, exp)
			if err != nil {
				slots[i].outcome = QueryOutcome{Expansion: out, Error: err.Error()}
				return nil
			}
			slots[i] = slot{results: res, outcome: QueryOutcome{Expansion: out, Hits: len(res)}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieving %s: %w", variant, err)
	}

	batch := NewBatch(variant, k)
	for i, q := range queries {
		if _, dup := batch.Outcomes[q.QID]; dup {
			r.logger.Warn("duplicate qid in batch, keeping first", "qid", q.QID, "variant", variant)
			continue
		}
		batch.Outcomes[q.QID] = slots[i].outcome
		if !slots[i].outcome.Failed() {
			batch.Results[q.QID] = slots[i].results
		}
	}
	r.logger.Info("batch retrieved",
		"variant", variant,
		"queries", len(queries),
		"failures", len(batch.Failures()),
		"fallbacks", len(batch.Fallbacks()),
		"k", k,
	)
	return batch, nil
}

func (r *Retriever) runOne(ctx context.Context, variant string, q parser.Query, k int, exp expansion.Expander) (res ranker.RankedResult, out expansion.Outcome, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("query %s: panic: %v", q.QID, p)
		}
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
			r.logger.Error("query failed", "qid", q.QID, "variant", variant, "error", err)
		case len(res) == 0:
			outcome = "zero_result"
		}
		r.metrics.ObserveQuery(variant, outcome, time.Since(start), len(res))
	}()

	if len(q.Terms) == 0 {
		return nil, out, apperrors.Validationf("query %q has no searchable terms", q.QID)
	}
	_, res, out = r.Search(ctx, q, k, exp)
	return res, out, nil
}
