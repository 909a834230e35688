package expansion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/resilience"
)

// Reason explains why a query fell back to its identity expansion.
type Reason string

const (
	ReasonTimeout     Reason = "timeout"
	ReasonError       Reason = "error"
	ReasonEmpty       Reason = "empty"
	ReasonInvalid     Reason = "invalid"
	ReasonCircuitOpen Reason = "circuit_open"
	ReasonCancelled   Reason = "cancelled"
)

// Outcome records what happened when a query was expanded. Reports use it
// to flag queries that were scored without expansion.
type Outcome struct {
	Source   string        `json:"source"`
	Fallback bool          `json:"fallback"`
	Reason   Reason        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Terms    int           `json:"terms"`
	Latency  time.Duration `json:"latency_ns"`
}

// OutcomeExpander is an Expander that also reports its Outcome.
type OutcomeExpander interface {
	Expander
	ExpandWithOutcome(ctx context.Context, q parser.Query) (parser.ExpandedQuery, Outcome)
}

// Run expands q with e and never fails: an error from a plain Expander is
// turned into an identity fallback with ReasonError.
func Run(ctx context.Context, e Expander, q parser.Query) (parser.ExpandedQuery, Outcome) {
	if oe, ok := e.(OutcomeExpander); ok {
		return oe.ExpandWithOutcome(ctx, q)
	}
	start := time.Now()
	eq, err := e.Expand(ctx, q)
	if err != nil {
		return parser.Identity(q), Outcome{
			Fallback: true,
			Reason:   classify(err),
			Error:    err.Error(),
			Latency:  time.Since(start),
		}
	}
	return eq, Outcome{Terms: len(eq.ExpansionTerms), Latency: time.Since(start)}
}

type GuardOptions struct {
	Timeout time.Duration
	// FailureThreshold <= 0 disables the circuit breaker.
	FailureThreshold int
	ResetTimeout     time.Duration
	Metrics         *metrics.Metrics
}

// Guarded wraps a source with a per-call timeout and an optional circuit
// breaker. On
// timeout, error, open circuit, invalid output or empty output
// it returns the identity expansion and records the fallback in the
// Outcome, the log and the expansion_fallbacks_total counter.
type Guarded struct {
	name    string
	inner   Expander
	opts    GuardOptions
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewGuarded(name string, inner Expander, opts GuardOptions) *Guarded {
	g := &Guarded{
		name:   name,
		inner:  inner,
		opts:   opts,
		logger: slog.Default().With("component", "expansion", "source", name),
	}
	if opts.FailureThreshold > 0 {
		m := opts.Metrics
		g.breaker = resilience.NewCircuitBreaker("expansion-"+name, resilience.CircuitBreakerConfig{
			FailureThreshold: opts.FailureThreshold,
			ResetTimeout:     opts.ResetTimeout,
			OnStateChange: func(name string, to resilience.State) {
				m.SetBreakerState(name, int(to))
			},
		})
	}
	return g
}

// Expand never returns an error.
func (g *Guarded) Expand(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	eq, _ := g.ExpandWithOutcome(ctx, q)
	return eq, nil
}

func (g *Guarded) ExpandWithOutcome(ctx context.Context, q parser.Query) (parser.ExpandedQuery, Outcome) {
	start := time.Now()
	results := make(chan parser.ExpandedQuery, 1)
	call := func() error {
		return resilience.WithTimeout(ctx, g.opts.Timeout, "expansion "+g.name, func(ctx context.Context) error {
			out, err := g.inner.Expand(ctx, q)
			if err != nil {
				return err
			}
			if err := out.Validate(); err != nil {
				return err
			}
			results <- out
			return nil
		})
	}
	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(call)
	} else {
		err = call()
	}
	elapsed := time.Since(start)
	g.opts.Metrics.ObserveExpansion(g.name, elapsed)

	var eq parser.ExpandedQuery
	if err == nil {
		eq = <-results
	}
	var reason Reason
	switch {
	case err != nil:
		reason = classify(err)
	case len(eq.ExpansionTerms) == 0:
		reason = ReasonEmpty
		err = apperrors.Expansionf("source returned no expansion terms")
	}
	if err != nil {
		g.opts.Metrics.RecordFallback(g.name, string(reason))
		g.logger.Warn("expansion fell back to identity",
			"qid", q.QID,
			"reason", reason,
			"error", err,
			"elapsed", elapsed,
		)
		return parser.Identity(q), Outcome{
			Source:   g.name,
			Fallback: true,
			Reason:   reason,
			Error:    err.Error(),
			Latency:  elapsed,
		}
	}
	return eq, Outcome{Source: g.name, Terms: len(eq.ExpansionTerms), Latency: elapsed}
}

// Unwrap returns the guarded source.
func (g *Guarded) Unwrap() Expander {
	return g.inner
}

// BreakerState reports StateClosed when the breaker is disabled.
func (g *Guarded) BreakerState() resilience.State {
	if g.breaker == nil {
		return resilience.StateClosed
	}
	return g.breaker.State()
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, resilience.ErrCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, apperrors.ErrValidation):
		return ReasonInvalid
	default:
		return ReasonError
	}
}
