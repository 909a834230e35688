package expansion

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

const (
	SourceIdentity  = "identity"
	SourceThesaurus = "thesaurus"
	SourceRemote    = "remote"
)

// New assembles the expander selected by the expansion config for batch
// runs. Non-identity sources are filtered, optionally cached in store, and
// guarded by the per-call timeout only: with no circuit breaker, a failure
// on one query never changes the outcome of another. store may be nil.
func New(root *config.Config, store Store, m *metrics.Metrics) (Expander, error) {
	return build(root, store, m, 0)
}

// NewInteractive is New with the configured circuit breaker in front of the
// source, for long-lived servers answering one query at a time.
func NewInteractive(root *config.Config, store Store, m *metrics.Metrics) (Expander, error) {
	return build(root, store, m, root.Expansion.FailureThreshold)
}

func build(root *config.Config, store Store, m *metrics.Metrics, failureThreshold int) (Expander, error) {
	cfg := root.Expansion
	var source Expander
	switch cfg.Source {
	case SourceIdentity, "":
		return Identity{}, nil
	case SourceThesaurus:
		th, err := LoadThesaurus(cfg.ThesaurusPath, cfg.DefaultWeight)
		if err != nil {
			return nil, err
		}
		source = th
	case SourceRemote:
		source = NewRemote(cfg.RemoteURL, &http.Client{}, cfg.DefaultWeight)
	default:
		return nil, apperrors.InvalidConfigf("unknown expansion source %q", cfg.Source)
	}

	source = Filtered(source, Filter{MaxTerms: cfg.MaxTerms})
	if cfg.CacheEnabled && store != nil {
		settings := CacheSettings{MaxTerms: cfg.MaxTerms, DefaultWeight: cfg.DefaultWeight}
		source = NewCache(cfg.Source, settings, source, store, root.Redis.CacheTTL, m)
	}
	return NewGuarded(cfg.Source, source, GuardOptions{
		Timeout:          cfg.Timeout,
		FailureThreshold: failureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		Metrics:          m,
	}), nil
}
