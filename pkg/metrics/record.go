package metrics

import (
	"strconv"
	"time"
)

// Nil-safe recording helpers used by library packages.

func (m *Metrics) ObserveBuild(elapsed time.Duration, docs int, shardDocs []int) {
	if m == nil {
		return
	}
	m.IndexBuildDuration.Observe(elapsed.Seconds())
	m.DocsIndexedTotal.Add(float64(docs))
	m.ActiveShards.Set(float64(len(shardDocs)))
	for id, n := range shardDocs {
		m.ShardDocCount.WithLabelValues(strconv.Itoa(id)).Set(float64(n))
	}
}

func (m *Metrics) ObserveQuery(variant, outcome string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(variant, outcome).Inc()
	m.SearchLatency.WithLabelValues(variant).Observe(elapsed.Seconds())
	m.SearchResultsCount.WithLabelValues(variant).Observe(float64(results))
}

func (m *Metrics) ObserveExpansion(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ExpansionLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordFallback(source, reason string) {
	if m == nil {
		return
	}
	m.ExpansionFallbacks.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordEvaluation(status string, scores map[string]map[string]float64) {
	if m == nil {
		return
	}
	m.EvaluationRunsTotal.WithLabelValues(status).Inc()
	for variant, byMetric := range scores {
		for name, v := range byMetric {
			m.EvaluationScore.WithLabelValues(variant, name).Set(v)
		}
	}
}
