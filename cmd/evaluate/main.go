package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/runner"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/tracing"
)

type options struct {
	configPath    string
	queriesPath   string
	judgmentsPath string
	variants      string
	k             int
	format        string
	outPath       string
	perQuery      bool
	archive       bool
	publish       bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("evaluate", pflag.ExitOnError)
	flags.StringVar(&opts.configPath, "config", "configs/qe.yaml", "path to config file")
	flags.StringVar(&opts.queriesPath, "queries", "", "queries JSONL file ({qid, query} per line)")
	flags.StringVar(&opts.judgmentsPath, "judgments", "", "judgments JSONL file ({qid, doc_id, relevance} per line)")
	flags.StringVar(&opts.variants, "variants", "expanded", "comma-separated variants to compare against the baseline: expanded, fused, random")
	flags.IntVar(&opts.k, "k", 0, "metric cutoff (defaults to evaluation.k)")
	flags.StringVar(&opts.format, "format", "table", "report format: table or json")
	flags.StringVarP(&opts.outPath, "out", "o", "", "write the report to a file instead of stdout")
	flags.BoolVar(&opts.perQuery, "per-query", false, "also print per-query metrics for every variant (table format)")
	flags.BoolVar(&opts.archive, "archive", false, "archive the report in PostgreSQL (or set evaluation.archive)")
	flags.BoolVar(&opts.publish, "publish", false, "publish run events to Kafka (or set evaluation.publish)")
	_ = flags.Parse(os.Args[1:])

	if opts.queriesPath == "" || opts.judgmentsPath == "" {
		fmt.Fprintln(os.Stderr, "--queries and --judgments are required")
		os.Exit(2)
	}
	if opts.format != "table" && opts.format != "json" {
		fmt.Fprintf(os.Stderr, "unknown --format %q\n", opts.format)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.k <= 0 {
		opts.k = cfg.Evaluation.K
	}
	opts.archive = opts.archive || cfg.Evaluation.Archive
	opts.publish = opts.publish || cfg.Evaluation.Publish

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

	if err := run(ctx, cfg, opts, m); err != nil {
		m.RecordEvaluation("error", nil)
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, m *metrics.Metrics) error {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "evaluate", runID)
	defer func() {
		span.End()
		if cfg.Tracing.Enabled {
			span.Log(slog.Default())
		}
	}()
	log := logger.FromContext(ctx)

	variants, err := runner.ParseVariants(opts.variants)
	if err != nil {
		return err
	}
	policy, err := evaluation.ParseMergePolicy(cfg.Evaluation.MergePolicy)
	if err != nil {
		return err
	}

	var store expansion.Store
	if cfg.Expansion.CacheEnabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, expansion caching disabled", "error", err)
		} else {
			defer rc.Close()
			store = rc
		}
	}
	r, err := runner.Open(cfg, store, m)
	if err != nil {
		return err
	}

	records, err := corpus.LoadQueries(opts.queriesPath)
	if err != nil {
		return err
	}
	queries := runner.Queries(records)
	judgments, err := evaluation.LoadJudgments(opts.judgmentsPath)
	if err != nil {
		return err
	}

	qids := make([]string, 0, len(queries))
	for _, q := range queries {
		qids = append(qids, q.QID)
	}
	check := evaluation.CheckJudgments(judgments, qids, r.Index().DocIDs(), 0)
	if !check.OK() {
		log.Warn("judgments reference unknown queries or documents",
			"unknown_qids", len(check.UnknownQIDs),
			"unknown_doc_ids", len(check.UnknownDocIDs),
			"bad_labels", check.BadLabels,
		)
	}

	qrels, err := evaluation.NewQrels(judgments, policy)
	if err != nil {
		log.Warn("some judgments were rejected", "rejected", len(qrels.Rejected()), "error", err)
	}
	log.Info("evaluation inputs loaded",
		"queries", len(queries),
		"judgments", qrels.Len(),
		"conflicts", qrels.Conflicts(),
		"variants", variants,
		"k", opts.k,
	)

	batches, err := r.Run(ctx, queries, opts.k, variants)
	if err != nil {
		return err
	}
	runs := make([]evaluation.Run, 0, len(batches))
	for _, b := range batches {
		runs = append(runs, evaluation.RunFromBatch(b))
	}

	report, err := evaluation.Compare(ctx, runs, qrels, opts.k)
	if err != nil {
		return err
	}
	report.RunID = runID
	report.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	report.TokenizerPolicy = tokenizer.PolicyVersion
	m.RecordEvaluation("ok", report.Scores())
	span.SetAttr("variants", len(report.Variants))

	if err := writeReport(report, opts); err != nil {
		return err
	}

	var errs []error
	if opts.archive {
		errs = append(errs, archive(ctx, cfg, report))
	}
	if opts.publish {
		errs = append(errs, publish(ctx, cfg, report))
	}
	log.Info("evaluation complete", "variants", len(report.Variants))
	return errors.Join(errs...)
}

func writeReport(report *evaluation.MetricReport, opts options) error {
	var w io.Writer = os.Stdout
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if opts.format == "json" {
		return report.WriteJSON(w)
	}
	if err := report.WriteTable(w); err != nil {
		return err
	}
	if !opts.perQuery {
		return nil
	}
	for _, v := range report.Variants {
		fmt.Fprintf(w, "\n%s\n", v.Variant)
		if err := v.WriteQueryTable(w); err != nil {
			return err
		}
	}
	return nil
}

func archive(ctx context.Context, cfg *config.Config, report *evaluation.MetricReport) error {
	ctx, span := tracing.StartChildSpan(ctx, "archive")
	defer span.End()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := postgres.New(connectCtx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", report.RunID, err)
	}
	defer db.Close()
	store := evaluation.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.SaveReport(ctx, report)
}

func publish(ctx context.Context, cfg *config.Config, report *evaluation.MetricReport) error {
	ctx, span := tracing.StartChildSpan(ctx, "publish")
	defer span.End()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
	defer producer.Close()
	return evaluation.NewPublisher(producer).Publish(ctx, report)
}
