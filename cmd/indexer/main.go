package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

func main() {
	flags := pflag.NewFlagSet("indexer", pflag.ExitOnError)
	configPath := flags.String("config", "configs/qe.yaml", "path to config file")
	corpusPath := flags.String("corpus", "", "corpus JSONL file (one {id, title, contents} per line)")
	outPath := flags.String("out", "", "segment output path (defaults to index.segmentPath)")
	shards := flags.Int("shards", 0, "override index.shards")
	_ = flags.Parse(os.Args[1:])

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "--corpus is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *outPath != "" {
		cfg.Index.SegmentPath = *outPath
	}
	if *shards > 0 {
		cfg.Index.Shards = *shards
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if shutdown, err := metrics.StartServer(cfg.Metrics.Port); err != nil {
			slog.Warn("metrics server disabled", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	if err := run(ctx, cfg, *corpusPath, m); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, corpusPath string, m *metrics.Metrics) error {
	start := time.Now()
	docs, err := corpus.LoadDocuments(corpusPath)
	if err != nil {
		return err
	}
	slog.Info("corpus loaded", "path", corpusPath, "documents", len(docs))

	builder, err := indexer.NewBuilder(cfg.Index, m)
	if err != nil {
		return err
	}
	idx, err := builder.Build(ctx, docs)
	if err != nil {
		return err
	}
	if err := segment.WriteFile(cfg.Index.SegmentPath, idx); err != nil {
		return err
	}
	slog.Info("index written",
		"path", cfg.Index.SegmentPath,
		"documents", idx.DocumentCount(),
		"terms", len(idx.Terms()),
		"avg_doc_length", idx.AverageDocumentLength(),
		"elapsed", time.Since(start),
	)
	return nil
}
