// Package runner wires the pieces a batch command needs: the persisted
// index, the scorer, the configured expander and the run variants.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/tracing"
)

// Run variant names.
const (
	VariantBaseline = "baseline"
	VariantExpanded = "expanded"
	VariantFused    = executor.VariantFused
	VariantRandom   = executor.VariantRandom
)

// ParseVariants splits a comma-separated variant list. The baseline is
// always first; fused requires expanded.
func ParseVariants(s string) ([]string, error) {
	out := []string{VariantBaseline}
	seen := map[string]bool{VariantBaseline: true}
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		switch v {
		case VariantExpanded, VariantFused, VariantRandom:
		default:
			return nil, apperrors.InvalidConfigf("unknown run variant %q", v)
		}
		seen[v] = true
		out = append(out, v)
	}
	if seen[VariantFused] && !seen[VariantExpanded] {
		return nil, apperrors.InvalidConfigf("the fused variant needs the expanded variant")
	}
	return out, nil
}

type Runner struct {
	cfg       *config.Config
	idx       *index.InvertedIndex
	retriever *executor.Retriever
	expander  expansion.Expander
	logger    *slog.Logger
}

type expanderFunc func(*config.Config, expansion.Store, *metrics.Metrics) (expansion.Expander, error)

// Open loads the index segment named in cfg and assembles a Runner for
// batch runs. store backs the expansion cache and may be nil; m may be nil.
func Open(cfg *config.Config, store expansion.Store, m *metrics.Metrics) (*Runner, error) {
	return open(cfg, store, m, expansion.New)
}

// OpenInteractive is Open with the expansion source behind the configured
// circuit breaker, for the search server.
func OpenInteractive(cfg *config.Config, store expansion.Store, m *metrics.Metrics) (*Runner, error) {
	return open(cfg, store, m, expansion.NewInteractive)
}

func open(cfg *config.Config, store expansion.Store, m *metrics.Metrics, newExpander expanderFunc) (*Runner, error) {
	idx, hdr, err := segment.ReadFile(cfg.Index.SegmentPath)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	slog.Info("index loaded",
		"path", cfg.Index.SegmentPath,
		"docs", hdr.DocCount,
		"terms", hdr.TermCount,
	)
	return newRunner(cfg, idx, store, m, newExpander)
}

// New assembles a batch Runner over an index already in memory.
func New(cfg *config.Config, idx *index.InvertedIndex, store expansion.Store, m *metrics.Metrics) (*Runner, error) {
	return newRunner(cfg, idx, store, m, expansion.New)
}

func newRunner(cfg *config.Config, idx *index.InvertedIndex, store expansion.Store, m *metrics.Metrics, newExpander expanderFunc) (*Runner, error) {
	scorer, err := ranker.NewScorer(ranker.ParamsFromConfig(cfg.Scoring))
	if err != nil {
		return nil, err
	}
	exp, err := newExpander(cfg, store, m)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:       cfg,
		idx:       idx,
		retriever: executor.New(idx, scorer, cfg.Retrieval.Concurrency, m),
		expander:  exp,
		logger:    slog.Default().With("component", "runner"),
	}, nil
}

func (r *Runner) Index() *index.InvertedIndex { return r.idx }

func (r *Runner) Retriever() *executor.Retriever { return r.retriever }

func (r *Runner) Expander() expansion.Expander { return r.expander }

// Queries turns query records into parsed queries. A record whose text
// has no searchable terms is kept with empty Terms so that retrieval
// reports it as a failed query instead of dropping it.
func Queries(records []corpus.QueryRecord) []parser.Query {
	queries := make([]parser.Query, 0, len(records))
	for _, rec := range records {
		q, err := parser.Parse(rec.QID, rec.Query)
		if err != nil {
			slog.Warn("query rejected", "qid", rec.QID, "error", err)
			q = parser.Query{QID: rec.QID, RawText: rec.Query}
		}
		queries = append(queries, q)
	}
	return queries
}

// Run produces one batch per variant, in the order given, each truncated
// to k.
func (r *Runner) Run(ctx context.Context, queries []parser.Query, k int, variants []string) ([]*executor.Batch, error) {
	ctx, span := tracing.StartChildSpan(ctx, "runner.run")
	defer span.End()
	span.SetAttr("queries", len(queries))

	byName := make(map[string]*executor.Batch, len(variants))
	batches := make([]*executor.Batch, 0, len(variants))
	for _, v := range variants {
		var (
			b   *executor.Batch
			err error
		)
		switch v {
		case VariantBaseline:
			b, err = r.retriever.RetrieveTopK(ctx, v, queries, k, expansion.Identity{})
		case VariantExpanded:
			b, err = r.retriever.RetrieveTopK(ctx, v, queries, k, r.expander)
		case VariantFused:
			base, exp := byName[VariantBaseline], byName[VariantExpanded]
			if base == nil || exp == nil {
				return nil, apperrors.InvalidConfigf("fused run needs baseline and expanded runs first")
			}
			b = executor.FuseBatches(r.cfg.Retrieval.FusionK, k, base, exp)
		case VariantRandom:
			b = executor.RandomRun(r.idx.DocIDs(), queries, k, uint64(r.cfg.Evaluation.RandomSeed))
		default:
			return nil, apperrors.InvalidConfigf("unknown run variant %q", v)
		}
		if err != nil {
			return nil, err
		}
		r.logger.Debug("variant run complete", "variant", v, "queries", len(b.Outcomes), "failures", len(b.Failures()))
		byName[v] = b
		batches = append(batches, b)
	}
	return batches, nil
}
