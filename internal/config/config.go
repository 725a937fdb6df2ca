// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (SAGEFY_ prefix, runtime override)
//  2. Config file (sagefy.yaml in the working directory or /etc/sagefy)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates the overlap fraction is out of range.
	ErrInvalidOverlap = errors.New("invalid overlap fraction")

	// ErrInvalidPercentile indicates the breakpoint percentile is out of range.
	ErrInvalidPercentile = errors.New("invalid breakpoint percentile")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidStrategy indicates an unknown retrieval strategy.
	ErrInvalidStrategy = errors.New("invalid retrieval strategy")

	// ErrInvalidBackend indicates an unknown vector store backend.
	ErrInvalidBackend = errors.New("invalid vector store backend")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
)

// Retrieval strategies for Config.Retrieval.Strategy.
const (
	StrategyHyDE   = "hyde"
	StrategyDirect = "direct"
)

// Vector store backends for Config.Store.Backend.
const (
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
	BackendMemory   = "memory"
)

// AI holds language model configuration.
type AI struct {
	Provider      string `mapstructure:"provider"`       // "googleai" (default)
	ModelName     string `mapstructure:"model_name"`     // completion model
	EmbedderModel string `mapstructure:"embedder_model"` // embedding model
}

// Chunking holds ingestion chunking parameters.
type Chunking struct {
	// ChunkSize is the token bound for every stored sub-chunk.
	ChunkSize int `mapstructure:"chunk_size"`

	// OverlapFraction of ChunkSize shared by adjacent sub-chunks, in tokens.
	OverlapFraction float64 `mapstructure:"overlap_fraction"`

	// MinBlockSize is the minimum semantic block length in characters.
	MinBlockSize int `mapstructure:"min_block_size"`

	// BreakpointPercentile of the span-distance distribution above which
	// a semantic breakpoint is inserted.
	BreakpointPercentile float64 `mapstructure:"breakpoint_percentile"`
}

// Retrieval holds query-side retrieval parameters.
type Retrieval struct {
	Strategy string        `mapstructure:"strategy"` // "hyde" or "direct"
	TopK     int           `mapstructure:"top_k"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Gate holds small-talk gate parameters.
type Gate struct {
	// FollowupsAsSmalltalk instructs the gate to treat references to prior
	// answers as small-talk instead of domain questions.
	FollowupsAsSmalltalk bool          `mapstructure:"followups_as_smalltalk"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// Tagger holds metadata tagger parameters.
type Tagger struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// RatePerSecond paces the per-chunk classification calls.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// Store selects and configures the vector index backend.
type Store struct {
	Backend    string `mapstructure:"backend"` // "postgres", "qdrant", "memory"
	Collection string `mapstructure:"collection"`
}

// Postgres holds PostgreSQL connection settings.
type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Qdrant holds Qdrant gRPC settings.
type Qdrant struct {
	Addr string `mapstructure:"addr"`
}

// Server holds HTTP server settings.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Config stores the full application configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	AI        AI        `mapstructure:"ai"`
	Chunking  Chunking  `mapstructure:"chunking"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Gate      Gate      `mapstructure:"gate"`
	Tagger    Tagger    `mapstructure:"tagger"`
	Store     Store     `mapstructure:"store"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Qdrant    Qdrant    `mapstructure:"qdrant"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: Server{Addr: "127.0.0.1:8080"},
		AI: AI{
			Provider:      "googleai",
			ModelName:     "gemini-2.5-flash",
			EmbedderModel: "text-embedding-004",
		},
		Chunking: Chunking{
			ChunkSize:            512,
			OverlapFraction:      0.12,
			MinBlockSize:         200,
			BreakpointPercentile: 95,
		},
		Retrieval: Retrieval{
			Strategy: StrategyHyDE,
			TopK:     10,
			Timeout:  30 * time.Second,
		},
		Gate:   Gate{FollowupsAsSmalltalk: false, Timeout: 15 * time.Second},
		Tagger: Tagger{Timeout: 20 * time.Second, RatePerSecond: 2},
		Store:  Store{Backend: BackendPostgres, Collection: "sagefy"},
		Postgres: Postgres{
			Host:    "localhost",
			Port:    5432,
			User:    "sagefy",
			DBName:  "sagefy",
			SSLMode: "disable",
		},
		Qdrant: Qdrant{Addr: "localhost:6334"},
	}
}

// Load reads configuration from file and environment, on top of defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("sagefy")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sagefy")

	v.SetEnvPrefix("SAGEFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine: defaults + env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model_name", d.AI.ModelName)
	v.SetDefault("ai.embedder_model", d.AI.EmbedderModel)
	v.SetDefault("chunking.chunk_size", d.Chunking.ChunkSize)
	v.SetDefault("chunking.overlap_fraction", d.Chunking.OverlapFraction)
	v.SetDefault("chunking.min_block_size", d.Chunking.MinBlockSize)
	v.SetDefault("chunking.breakpoint_percentile", d.Chunking.BreakpointPercentile)
	v.SetDefault("retrieval.strategy", d.Retrieval.Strategy)
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.timeout", d.Retrieval.Timeout)
	v.SetDefault("gate.followups_as_smalltalk", d.Gate.FollowupsAsSmalltalk)
	v.SetDefault("gate.timeout", d.Gate.Timeout)
	v.SetDefault("tagger.timeout", d.Tagger.Timeout)
	v.SetDefault("tagger.rate_per_second", d.Tagger.RatePerSecond)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.collection", d.Store.Collection)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("qdrant.addr", d.Qdrant.Addr)
}

// Validate checks configuration ranges and enum values.
func (c *Config) Validate() error {
	if c.AI.ModelName == "" {
		return fmt.Errorf("%w: ai.model_name must not be empty", ErrInvalidModelName)
	}
	if c.AI.EmbedderModel == "" {
		return fmt.Errorf("%w: ai.embedder_model must not be empty", ErrInvalidModelName)
	}
	if c.Chunking.ChunkSize < 16 || c.Chunking.ChunkSize > 8192 {
		return fmt.Errorf("%w: chunk_size %d, want 16-8192", ErrInvalidChunkSize, c.Chunking.ChunkSize)
	}
	if c.Chunking.OverlapFraction < 0 || c.Chunking.OverlapFraction >= 0.5 {
		return fmt.Errorf("%w: overlap_fraction %v, want [0, 0.5)", ErrInvalidOverlap, c.Chunking.OverlapFraction)
	}
	if c.Chunking.BreakpointPercentile <= 0 || c.Chunking.BreakpointPercentile > 100 {
		return fmt.Errorf("%w: breakpoint_percentile %v, want (0, 100]", ErrInvalidPercentile, c.Chunking.BreakpointPercentile)
	}
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 100 {
		return fmt.Errorf("%w: top_k %d, want 1-100", ErrInvalidTopK, c.Retrieval.TopK)
	}
	switch c.Retrieval.Strategy {
	case StrategyHyDE, StrategyDirect:
	default:
		return fmt.Errorf("%w: %q, want %q or %q", ErrInvalidStrategy, c.Retrieval.Strategy, StrategyHyDE, StrategyDirect)
	}
	switch c.Store.Backend {
	case BackendPostgres, BackendQdrant, BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres {
		if c.Postgres.Host == "" {
			return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
		}
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.Postgres.Port)
		}
	}
	return nil
}
