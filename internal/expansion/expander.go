// Package expansion is the boundary between the retrieval core and any
// source of expansion terms. The core depends only on Expander; sources
// plug in behind it and are wrapped by Guarded so that a failing source
// degrades a query to its identity expansion instead of failing it.
package expansion

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
)

// Expander maps a base query to an expanded query.
type Expander interface {
	Expand(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error)
}

// Func adapts a function to Expander.
type Func func(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error)

func (f Func) Expand(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	return f(ctx, q)
}

// Identity adds no terms. It is the baseline expander and the fallback for
// every other source.
type Identity struct{}

func (Identity) Expand(_ context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	return parser.Identity(q), nil
}
