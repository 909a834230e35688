// Package indexer builds the inverted index from a corpus. Documents are
// partitioned into shards by doc-ID hash, each shard is tokenized into its
// own index.Partial on a worker, and the partials are reduced into one
// immutable index by a single merge. A build either publishes a complete
// index or returns an error; there is no partially built state.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/tracing"
)

// ctxCheckEvery bounds how many documents a worker indexes between
// cancellation checks.
const ctxCheckEvery = 256

type Builder struct {
	router  *shard.Router
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewBuilder creates a Builder from the index section of the config. m may
// be nil.
func NewBuilder(cfg config.IndexConfig, m *metrics.Metrics) (*Builder, error) {
	router, err := shard.NewRouter(cfg.Shards)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Builder{
		router:  router,
		workers: workers,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}, nil
}

// Build indexes docs with the default index settings.
func Build(ctx context.Context, docs []corpus.Document) (*index.InvertedIndex, error) {
	b, err := NewBuilder(config.Default().Index, nil)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, docs)
}

// Build validates the corpus and constructs its index. The corpus is
// rejected as a whole if it is empty or any document has an empty or
// duplicate ID.
func (b *Builder) Build(ctx context.Context, docs []corpus.Document) (*index.InvertedIndex, error) {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer func() {
		span.End()
		span.Log(b.logger)
	}()

	if err := corpus.ValidateCorpus(docs); err != nil {
		return nil, err
	}

	shards := shard.Partition(b.router, docs, func(d corpus.Document) string { return d.ID })
	parts := make([]*index.Partial, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for id, shardDocs := range shards {
		g.Go(func() error {
			part := index.NewPartial()
			for i, doc := range shardDocs {
				if i%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if err := part.AddDocument(doc.ID, doc.Title, doc.Text); err != nil {
					return fmt.Errorf("shard %d: %w", id, err)
				}
			}
			parts[id] = part
			b.logger.Debug("shard indexed",
				"shard_id", id,
				"docs", part.DocCount(),
				"terms", part.TermCount(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building shards: %w", err)
	}
	span.SetAttr("shards", len(parts))

	idx, err := index.Merge(parts...)
	if err != nil {
		return nil, fmt.Errorf("merging shards: %w", err)
	}

	shardDocs := make([]int, len(parts))
	for i, p := range parts {
		shardDocs[i] = p.DocCount()
	}
	elapsed := time.Since(start)
	b.metrics.ObserveBuild(elapsed, idx.DocumentCount(), shardDocs)
	span.SetAttr("docs", idx.DocumentCount())
	b.logger.Info("index built",
		"docs", idx.DocumentCount(),
		"terms", len(idx.Terms()),
		"avg_doc_length", idx.AverageDocumentLength(),
		"shards", len(parts),
		"elapsed", elapsed,
	)
	return idx, nil
}
