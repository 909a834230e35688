package expansion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/metrics"
)

const keyPrefix = "qexp:"

// Store is the byte cache behind Cache. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// CacheSettings are the expansion settings that shape a source's filtered
// output. Entries written under one set of settings are never served under
// another.
type CacheSettings struct {
	MaxTerms      int
	DefaultWeight float64
}

func (s CacheSettings) String() string {
	return fmt.Sprintf("max=%d;weight=%g", s.MaxTerms, s.DefaultWeight)
}

// Cache memoizes a source's expansion terms by (source, settings,
// tokenizer policy, query terms), so repeated runs and concurrent identical
// queries call the source once. Store errors degrade to a cache miss.
// Errors from the source are never cached.
type Cache struct {
	source   string
	settings CacheSettings
	inner    Expander
	store    Store
	ttl      time.Duration
	group    singleflight.Group
	m        *metrics.Metrics
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

// CacheOf finds the Cache in a chain of wrapping expanders, such as the one
// New returns.
func CacheOf(e Expander) (*Cache, bool) {
	for e != nil {
		if c, ok := e.(*Cache); ok {
			return c, true
		}
		w, ok := e.(interface{ Unwrap() Expander })
		if !ok {
			return nil, false
		}
		e = w.Unwrap()
	}
	return nil, false
}

func NewCache(source string, settings CacheSettings, inner Expander, store Store, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		source:   source,
		settings: settings,
		inner:    inner,
		store:    store,
		ttl:      ttl,
		m:        m,
		logger:   slog.Default().With("component", "expansion-cache", "source", source),
	}
}

func (c *Cache) Expand(ctx context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	key := c.key(q)
	if terms, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		c.m.RecordCache(true)
		return parser.Expand(q, terms), nil
	}
	c.misses.Add(1)
	c.m.RecordCache(false)

	val, err, _ := c.group.Do(key, func() (any, error) {
		if terms, ok := c.get(ctx, key); ok {
			return terms, nil
		}
		eq, err := c.inner.Expand(ctx, q)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, eq.ExpansionTerms)
		return eq.ExpansionTerms, nil
	})
	if err != nil {
		return parser.ExpandedQuery{}, err
	}
	// Callers sharing a flight may have different qids; rebuild per caller.
	return parser.Expand(q, val.(map[string]float64)), nil
}

// Invalidate drops every cached expansion for this source.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	d, ok := c.store.(prefixDeleter)
	if !ok {
		return 0, nil
	}
	n, err := d.DeletePrefix(ctx, keyPrefix+c.source+":")
	if err != nil {
		return n, err
	}
	c.logger.Info("expansion cache invalidated", "keys_deleted", n)
	return n, nil
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(ctx context.Context, key string) (map[string]float64, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var terms map[string]float64
	if err := json.Unmarshal(data, &terms); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return terms, true
}

func (c *Cache) set(ctx context.Context, key string, terms map[string]float64) {
	if len(terms) == 0 {
		return
	}
	data, err := json.Marshal(terms)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) key(q parser.Query) string {
	raw := c.settings.String() + "\x00" + tokenizer.PolicyVersion + "\x00" + strings.Join(q.Terms, " ")
	sum := sha256.Sum256([]byte(raw))
	return keyPrefix + c.source + ":" + hex.EncodeToString(sum[:16])
}
