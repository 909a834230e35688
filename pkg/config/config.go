// Package config loads and validates run configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Index, Scoring, Retrieval, Expansion, Evaluation, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Config is the top-level run configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Expansion  ExpansionConfig  `yaml:"expansion"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexConfig controls index construction and where the built index is
// persisted.
type IndexConfig struct {
	SegmentPath string `yaml:"segmentPath"`
	Shards      int    `yaml:"shards"`
	Workers     int    `yaml:"workers"`
}

// ScoringConfig holds the BM25 constants. They are fixed for a run and shared
// by every variant so that comparisons stay valid.
type ScoringConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// RetrievalConfig controls batch retrieval.
type RetrievalConfig struct {
	TopK        int `yaml:"topK"`
	PoolDepth   int `yaml:"poolDepth"`
	Concurrency int `yaml:"concurrency"`
	FusionK     int `yaml:"fusionK"`
}

// ExpansionConfig selects and tunes the expansion source used for the
// expanded run variant.
type ExpansionConfig struct {
	// Source is one of "identity", "thesaurus" or "remote".
	Source           string        `yaml:"source"`
	ThesaurusPath    string        `yaml:"thesaurusPath"`
	RemoteURL        string        `yaml:"remoteUrl"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxTerms         int           `yaml:"maxTerms"`
	DefaultWeight    float64       `yaml:"defaultWeight"`
	// FailureThreshold and ResetTimeout tune the circuit breaker of the
	// search server. Batch runs do not use a breaker.
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
	CacheEnabled     bool          `yaml:"cacheEnabled"`
}

// EvaluationConfig controls the metric cutoff and judgment handling.
type EvaluationConfig struct {
	K           int    `yaml:"k"`
	MergePolicy string `yaml:"mergePolicy"`
	RandomSeed  int64  `yaml:"randomSeed"`
	Archive     bool   `yaml:"archive"`
	Publish     bool   `yaml:"publish"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RunEvents string `yaml:"runEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for evaluation runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Invalid scoring or retrieval settings
// are fatal and reported as ErrInvalidConfig.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local evaluation runs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			SegmentPath: "data/index/corpus.qxseg",
			Shards:      8,
			Workers:     4,
		},
		Scoring: ScoringConfig{
			K1: 1.2,
			B:  0.75,
		},
		Retrieval: RetrievalConfig{
			TopK:        10,
			PoolDepth:   30,
			Concurrency: 8,
			FusionK:     60,
		},
		Expansion: ExpansionConfig{
			Source:           "identity",
			Timeout:          5 * time.Second,
			MaxTerms:         10,
			DefaultWeight:    0.5,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Evaluation: EvaluationConfig{
			K:           10,
			MergePolicy: "last-write",
			RandomSeed:  42,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "qeval",
			User:            "qeval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				RunEvents: "evaluation-runs",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate rejects settings that would make a run meaningless. Non-positive
// k1, b outside (0, 1], non-positive cutoffs and pool sizes are all fatal.
func (c *Config) Validate() error {
	switch {
	case c.Scoring.K1 <= 0:
		return apperrors.InvalidConfigf("scoring.k1 must be positive, got %v", c.Scoring.K1)
	case c.Scoring.B <= 0 || c.Scoring.B > 1:
		return apperrors.InvalidConfigf("scoring.b must be in (0, 1], got %v", c.Scoring.B)
	case c.Retrieval.TopK <= 0:
		return apperrors.InvalidConfigf("retrieval.topK must be positive, got %d", c.Retrieval.TopK)
	case c.Retrieval.PoolDepth <= 0:
		return apperrors.InvalidConfigf("retrieval.poolDepth must be positive, got %d", c.Retrieval.PoolDepth)
	case c.Retrieval.Concurrency <= 0:
		return apperrors.InvalidConfigf("retrieval.concurrency must be positive, got %d", c.Retrieval.Concurrency)
	case c.Retrieval.FusionK <= 0:
		return apperrors.InvalidConfigf("retrieval.fusionK must be positive, got %d", c.Retrieval.FusionK)
	case c.Evaluation.K <= 0:
		return apperrors.InvalidConfigf("evaluation.k must be positive, got %d", c.Evaluation.K)
	case c.Index.Shards <= 0:
		return apperrors.InvalidConfigf("index.shards must be positive, got %d", c.Index.Shards)
	case c.Index.Workers <= 0:
		return apperrors.InvalidConfigf("index.workers must be positive, got %d", c.Index.Workers)
	}
	switch c.Expansion.Source {
	case "identity", "thesaurus", "remote":
	default:
		return apperrors.InvalidConfigf("expansion.source must be identity, thesaurus or remote, got %q", c.Expansion.Source)
	}
	if c.Expansion.Source == "thesaurus" && c.Expansion.ThesaurusPath == "" {
		return apperrors.InvalidConfigf("expansion.thesaurusPath is required for the thesaurus source")
	}
	if c.Expansion.Source == "remote" && c.Expansion.RemoteURL == "" {
		return apperrors.InvalidConfigf("expansion.remoteUrl is required for the remote source")
	}
	if c.Expansion.DefaultWeight <= 0 {
		return apperrors.InvalidConfigf("expansion.defaultWeight must be positive, got %v", c.Expansion.DefaultWeight)
	}
	return nil
}

// applyEnvOverrides reads QE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QE_INDEX_SEGMENT_PATH"); v != "" {
		cfg.Index.SegmentPath = v
	}
	if v := os.Getenv("QE_SCORING_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.K1 = f
		}
	}
	if v := os.Getenv("QE_SCORING_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.B = f
		}
	}
	if v := os.Getenv("QE_EXPANSION_SOURCE"); v != "" {
		cfg.Expansion.Source = v
	}
	if v := os.Getenv("QE_EXPANSION_REMOTE_URL"); v != "" {
		cfg.Expansion.RemoteURL = v
	}
	if v := os.Getenv("QE_EXPANSION_THESAURUS_PATH"); v != "" {
		cfg.Expansion.ThesaurusPath = v
	}
	if v := os.Getenv("QE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
