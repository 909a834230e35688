package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/runner"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/redis"
)

const maxK = 100

func main() {
	flags := pflag.NewFlagSet("searcher", pflag.ExitOnError)
	configPath := flags.String("config", "configs/qe.yaml", "path to config file")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"segment", cfg.Index.SegmentPath,
		"expansion_source", cfg.Expansion.Source,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		if shutdown, err := metrics.StartServer(cfg.Metrics.Port); err != nil {
			slog.Warn("metrics server disabled", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	var (
		store       expansion.Store
		redisClient *pkgredis.Client
	)
	if cfg.Expansion.CacheEnabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, expansion caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			store = redisClient
			slog.Info("expansion cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	r, err := runner.OpenInteractive(cfg, store, m)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisPinger health.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	checker := health.NewChecker(2 * time.Second)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		n := r.Index().DocumentCount()
		if n == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no documents"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", n)}
	})
	checker.Register("redis", health.PingCheck(redisPinger, false))

	var cacheControl handler.CacheControl
	if c, ok := expansion.CacheOf(r.Expander()); ok {
		cacheControl = c
	}
	h := handler.New(r.Retriever(), r.Expander(), cacheControl, cfg.Retrieval.TopK, maxK, m)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
