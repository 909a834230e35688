package evaluation

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/resilience"
)

type EventType string

const (
	EventRunCompleted  EventType = "run_completed"
	EventVariantScored EventType = "variant_scored"
	EventQueryFallback EventType = "query_fallback"
	EventQueryFailed   EventType = "query_failed"
)

// RunEvent is published once per evaluation run.
type RunEvent struct {
	Type      EventType                     `json:"type"`
	RunID     string                        `json:"run_id"`
	K         int                           `json:"k"`
	Baseline  string                        `json:"baseline"`
	Scores    map[string]map[string]float64 `json:"scores"`
	Deltas    map[string]map[string]float64 `json:"deltas"`
	Rejected  int                           `json:"rejected_judgments"`
	Timestamp time.Time                     `json:"timestamp"`
}

// VariantEvent carries one variant's aggregates.
type VariantEvent struct {
	Type       EventType          `json:"type"`
	RunID      string             `json:"run_id"`
	Variant    string             `json:"variant"`
	Aggregate  map[string]float64 `json:"aggregate"`
	Evaluated  int                `json:"evaluated"`
	MAPQueries int                `json:"map_queries"`
	Timestamp  time.Time          `json:"timestamp"`
}

// QueryEvent flags a query that fell back to identity expansion or failed.
type QueryEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Variant   string    `json:"variant"`
	QID       string    `json:"qid"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchPublisher is the Kafka side of Publisher. *kafka.Producer
// satisfies it.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher turns a MetricReport into run events. Every event is keyed by
// run ID so that a run's events land on one partition in order.
type Publisher struct {
	producer BatchPublisher
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewPublisher(producer BatchPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		retry:    resilience.RetryConfig{MaxAttempts: 3},
		now:      time.Now,
		logger:   slog.Default().With("component", "evaluation-publisher"),
	}
}

// Events builds the events for report in publish order: the run summary,
// then one event per variant, then one per flagged query.
func (p *Publisher) Events(report *MetricReport) []kafka.Event {
	ts := p.now().UTC()
	events := []kafka.Event{{
		Key: report.RunID,
		Value: RunEvent{
			Type:      EventRunCompleted,
			RunID:     report.RunID,
			K:         report.K,
			Baseline:  report.Baseline,
			Scores:    report.Scores(),
			Deltas:    report.Deltas,
			Rejected:  len(report.Rejected),
			Timestamp: ts,
		},
	}}
	for _, v := range report.Variants {
		events = append(events, kafka.Event{
			Key: report.RunID,
			Value: VariantEvent{
				Type:       EventVariantScored,
				RunID:      report.RunID,
				Variant:    v.Variant,
				Aggregate:  v.Aggregate,
				Evaluated:  v.Evaluated,
				MAPQueries: v.MAPQueries,
				Timestamp:  ts,
			},
		})
	}
	for _, v := range report.Variants {
		for _, qid := range v.Fallbacks {
			events = append(events, queryEvent(report.RunID, v.Variant, qid, EventQueryFallback, ts))
		}
		for _, qid := range v.Failures {
			events = append(events, queryEvent(report.RunID, v.Variant, qid, EventQueryFailed, ts))
		}
	}
	return events
}

// Publish sends the report's events as one batch, retrying transient
// failures.
func (p *Publisher) Publish(ctx context.Context, report *MetricReport) error {
	events := p.Events(report)
	err := resilience.Retry(ctx, "publish run events", p.retry, func(ctx context.Context) error {
		return p.producer.PublishBatch(ctx, events)
	})
	if err != nil {
		p.logger.Error("run events not published", "run_id", report.RunID, "events", len(events), "error", err)
		return err
	}
	p.logger.Info("run events published", "run_id", report.RunID, "events", len(events))
	return nil
}

func queryEvent(runID, variant, qid string, typ EventType, ts time.Time) kafka.Event {
	return kafka.Event{
		Key: runID,
		Value: QueryEvent{
			Type:      typ,
			RunID:     runID,
			Variant:   variant,
			QID:       qid,
			Timestamp: ts,
		},
	}
}
