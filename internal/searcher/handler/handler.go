// Package handler exposes the retriever over HTTP for interactive queries:
// search with or without expansion, per-document score explanations and
// the expansion cache controls.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

// CacheControl is the subset of the expansion cache the handler exposes.
type CacheControl interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

type Handler struct {
	retriever *executor.Retriever
	expander  expansion.Expander
	cache     CacheControl
	defaultK  int
	maxK      int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// SearchResponse is the body of /api/v1/search.
type SearchResponse struct {
	QID       string                `json:"qid"`
	Query     string                `json:"query"`
	K         int                   `json:"k"`
	Terms     []parser.WeightedTerm `json:"terms"`
	Expansion expansion.Outcome     `json:"expansion"`
	Results   ranker.RankedResult   `json:"results"`
	LatencyMs int64                 `json:"latency_ms"`
}

// New creates a Handler. expander is used when a request asks for
// expansion; cache may be nil when caching is disabled.
func New(r *executor.Retriever, expander expansion.Expander, cache CacheControl, defaultK, maxK int, m *metrics.Metrics) *Handler {
	if expander == nil {
		expander = expansion.Identity{}
	}
	return &Handler{
		retriever: r,
		expander:  expander,
		cache:     cache,
		defaultK:  defaultK,
		maxK:      maxK,
		metrics:   m,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/explain", h.Explain)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, err := h.parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	k, err := h.parseK(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	variant, exp := h.pickExpander(r)

	eq, results, outcome := h.retriever.Search(ctx, q, k, exp)
	elapsed := time.Since(start)
	status := "ok"
	if len(results) == 0 {
		status = "zero_result"
	}
	h.metrics.ObserveQuery(variant, status, elapsed, len(results))

	log.Info("search completed",
		"query", q.RawText,
		"variant", variant,
		"returned", len(results),
		"fallback", outcome.Fallback,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, &SearchResponse{
		QID:       q.QID,
		Query:     q.RawText,
		K:         k,
		Terms:     eq.WeightedTerms(),
		Expansion: outcome,
		Results:   results,
		LatencyMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := r.URL.Query().Get("doc")
	if docID == "" {
		h.writeError(w, apperrors.Validationf("query parameter 'doc' is required"))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_, exp := h.pickExpander(r)
	eq, _ := expansion.Run(ctx, exp, q)
	explanation, err := h.retriever.Scorer().Explain(eq, h.retriever.Index(), docID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, explanation)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}

	n, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": n})
}

// parseQuery reads q and an optional qid. Ad hoc queries get a random qid.
func (h *Handler) parseQuery(r *http.Request) (parser.Query, error) {
	text := r.URL.Query().Get("q")
	if text == "" {
		return parser.Query{}, apperrors.Validationf("query parameter 'q' is required")
	}
	qid := r.URL.Query().Get("qid")
	if qid == "" {
		qid = uuid.NewString()
	}
	return parser.Parse(qid, text)
}

func (h *Handler) parseK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return h.defaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, apperrors.Validationf("k must be a positive integer, got %q", raw)
	}
	if h.maxK > 0 && k > h.maxK {
		k = h.maxK
	}
	return k, nil
}

func (h *Handler) pickExpander(r *http.Request) (string, expansion.Expander) {
	if expand, _ := strconv.ParseBool(r.URL.Query().Get("expand")); expand {
		return "expanded", h.expander
	}
	return "baseline", expansion.Identity{}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
