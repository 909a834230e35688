package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/runner"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("pool", pflag.ExitOnError)
	configPath := flags.String("config", "configs/qe.yaml", "path to config file")
	queriesPath := flags.String("queries", "", "queries JSONL file ({qid, query} per line)")
	variants := flags.String("variants", "expanded", "comma-separated variants pooled with the baseline")
	depth := flags.Int("depth", 0, "documents taken from each variant per query (defaults to retrieval.poolDepth)")
	outPath := flags.StringP("out", "o", "pool.jsonl", "pool JSONL output path")
	checkPath := flags.String("check", "", "check a completed judgments file against the queries and index instead of pooling")
	_ = flags.Parse(os.Args[1:])

	if *queriesPath == "" {
		fmt.Fprintln(os.Stderr, "--queries is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *depth <= 0 {
		*depth = cfg.Retrieval.PoolDepth
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.Open(cfg, nil, nil)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	records, err := corpus.LoadQueries(*queriesPath)
	if err != nil {
		slog.Error("failed to load queries", "error", err)
		os.Exit(1)
	}
	queries := runner.Queries(records)

	if *checkPath != "" {
		ok, err := check(r, queries, *checkPath, *depth)
		if err != nil {
			slog.Error("judgment check failed", "error", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
		return
	}

	if err := pool(ctx, r, queries, *variants, *depth, *outPath); err != nil {
		slog.Error("pooling failed", "error", err)
		os.Exit(1)
	}
}

func pool(ctx context.Context, r *runner.Runner, queries []parser.Query, variantList string, depth int, outPath string) error {
	variants, err := runner.ParseVariants(variantList)
	if err != nil {
		return err
	}
	batches, err := r.Run(ctx, queries, depth, variants)
	if err != nil {
		return err
	}
	entries := executor.BuildPool(depth, batches...)
	if err := corpus.CreateJSONL(outPath, entries); err != nil {
		return err
	}
	slog.Info("judgment pool written",
		"path", outPath,
		"queries", len(queries),
		"pairs", len(entries),
		"depth", depth,
		"variants", variants,
	)
	return nil
}

func check(r *runner.Runner, queries []parser.Query, path string, depth int) (bool, error) {
	judgments, err := evaluation.LoadJudgments(path)
	if err != nil {
		return false, err
	}
	qids := make([]string, 0, len(queries))
	for _, q := range queries {
		qids = append(qids, q.QID)
	}
	report := evaluation.CheckJudgments(judgments, qids, r.Index().DocIDs(), depth)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return false, err
	}
	return report.OK(), nil
}
