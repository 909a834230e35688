package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    run_id      TEXT PRIMARY KEY,
    k           INTEGER NOT NULL,
    baseline    TEXT NOT NULL,
    report      JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS evaluation_scores (
    run_id   TEXT NOT NULL REFERENCES evaluation_runs(run_id) ON DELETE CASCADE,
    variant  TEXT NOT NULL,
    metric   TEXT NOT NULL,
    value    DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, variant, metric)
);`

// RunSummary is one archived run's aggregate scores.
type RunSummary struct {
	RunID     string                        `json:"run_id"`
	K         int                           `json:"k"`
	Baseline  string                        `json:"baseline"`
	CreatedAt time.Time                     `json:"created_at"`
	Scores    map[string]map[string]float64 `json:"scores"`
}

// Store archives metric reports in PostgreSQL: the full report as JSONB
// plus one row per (variant, metric) aggregate for trend queries.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "evaluation-store"),
	}
}

// EnsureSchema creates the archive tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating evaluation schema: %w", err)
	}
	return nil
}

// SaveReport stores report under its RunID in one transaction.
func (s *Store) SaveReport(ctx context.Context, report *MetricReport) error {
	if report.RunID == "" {
		return errors.New("saving report: empty run id")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	created := time.Now().UTC()
	if report.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, report.CreatedAt); err == nil {
			created = t
		}
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_runs (run_id, k, baseline, report, created_at) VALUES ($1, $2, $3, $4, $5)`,
			report.RunID, report.K, report.Baseline, data, created,
		); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO evaluation_scores (run_id, variant, metric, value) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing score insert: %w", err)
		}
		defer stmt.Close()
		for _, v := range report.Variants {
			for _, name := range MetricNames {
				if _, err := stmt.ExecContext(ctx, report.RunID, v.Variant, name, v.Aggregate[name]); err != nil {
					return fmt.Errorf("inserting score %s/%s: %w", v.Variant, name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving report %s: %w", report.RunID, err)
	}

	s.logger.Info("evaluation report archived",
		"run_id", report.RunID,
		"variants", len(report.Variants),
	)
	return nil
}

// LoadReport returns the archived report for runID, or nil, nil if there
// is none.
func (s *Store) LoadReport(ctx context.Context, runID string) (*MetricReport, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT report FROM evaluation_runs WHERE run_id = $1`, runID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", runID, err)
	}
	var report MetricReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report %s: %w", runID, err)
	}
	return &report, nil
}

// ListRuns returns the last limit runs with their aggregate scores, newest
// first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT r.run_id, r.k, r.baseline, r.created_at, s.variant, s.metric, s.value
		FROM (SELECT run_id, k, baseline, created_at FROM evaluation_runs ORDER BY created_at DESC LIMIT $1) r
		JOIN evaluation_scores s ON s.run_id = r.run_id`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*RunSummary)
	for rows.Next() {
		var (
			sum            RunSummary
			variant, label string
			value          float64
		)
		if err := rows.Scan(&sum.RunID, &sum.K, &sum.Baseline, &sum.CreatedAt, &variant, &label, &value); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		cur, ok := byID[sum.RunID]
		if !ok {
			sum.Scores = make(map[string]map[string]float64)
			cur = &sum
			byID[sum.RunID] = cur
		}
		if cur.Scores[variant] == nil {
			cur.Scores[variant] = make(map[string]float64)
		}
		cur.Scores[variant][label] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]RunSummary, 0, len(byID))
	for _, r := range byID {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
	return runs, nil
}
