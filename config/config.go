// Package config provides unified configuration loading for lexflow.
// Values are resolved defaults-first, then overridden by an optional YAML
// file, then by LEXFLOW_-prefixed environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the complete lexflow configuration.
type Config struct {
	// Retrieval configures the hybrid local store and score fusion.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Rerank configures the cross-encoder reranking stage.
	Rerank RerankConfig `yaml:"rerank"`

	// Search configures the external search provider layer.
	Search SearchConfig `yaml:"search"`

	// Cache configures the session evidence cache.
	Cache CacheConfig `yaml:"cache"`

	// Executor configures task-graph execution.
	Executor ExecutorConfig `yaml:"executor"`

	// Database configures the Postgres connection for the local store.
	Database DatabaseConfig `yaml:"database"`

	// LLM configures the completion, embedding, and rerank model endpoints.
	LLM LLMConfig `yaml:"llm"`

	// Log configures zap logging.
	Log LogConfig `yaml:"log"`

	// Metrics configures Prometheus metric collection.
	Metrics MetricsConfig `yaml:"metrics"`
}

// RetrievalConfig tunes hybrid retrieval.
type RetrievalConfig struct {
	// FusionAlpha is the lexical weight in fused scoring; the vector signal
	// receives 1-alpha. Range [0,1].
	FusionAlpha float64 `yaml:"fusion_alpha"`
	// PreSelectionK is the vector-distance pre-selection window.
	PreSelectionK int `yaml:"pre_selection_k"`
	// FinalLimit caps the fragments returned by one retrieval call.
	FinalLimit int `yaml:"final_limit"`
}

// RerankConfig tunes the reranking stage.
type RerankConfig struct {
	// TopN caps reranker output length.
	TopN int `yaml:"top_n"`
	// Threshold filters fragments below this [0,1] confidence. Zero disables.
	Threshold float64 `yaml:"threshold"`
}

// SearchConfig tunes external search providers.
type SearchConfig struct {
	// MaxResults per provider search call.
	MaxResults int `yaml:"max_results"`
	// ScrapeDelay is the minimum inter-request delay per scraping provider
	// instance. Concurrent providers are not serialized against each other.
	ScrapeDelay time.Duration `yaml:"scrape_delay"`
	// RequestTimeout bounds a single search or extract HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// PreferredDomains restricts web search to an allowlist.
	PreferredDomains []string `yaml:"preferred_domains"`
	// CaseLawSite is the primary case-law source domain.
	CaseLawSite string `yaml:"case_law_site"`
	// APIKey authenticates the hosted search API provider.
	APIKey string `yaml:"api_key"`
	// APIEndpoint is the hosted search API base URL.
	APIEndpoint string `yaml:"api_endpoint"`
}

// CacheConfig tunes the session evidence cache.
type CacheConfig struct {
	// Backend selects the cache implementation: "memory" or "redis".
	Backend string `yaml:"backend"`
	// TTL is the idle lifetime of a session before eviction.
	TTL time.Duration `yaml:"ttl"`
	// Redis holds connection settings for the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

// ExecutorConfig tunes task-graph execution.
type ExecutorConfig struct {
	// TaskTimeout bounds a single task; a timed-out task is marked failed
	// and its dependents are skipped.
	TaskTimeout time.Duration `yaml:"task_timeout"`
	// ClarificationCheck enables the pre-scheduling ambiguity short-circuit.
	ClarificationCheck bool `yaml:"clarification_check"`
	// SynthesisTopN caps the final synthesized context size.
	SynthesisTopN int `yaml:"synthesis_top_n"`
	// SynthesisTokenBudget caps the rendered context in tokens. Zero disables.
	SynthesisTokenBudget int `yaml:"synthesis_token_budget"`
}

// DatabaseConfig holds Postgres settings for the hybrid local store.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN renders the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LLMConfig holds model endpoint settings. The completion and embedding
// endpoints speak the OpenAI-compatible API; the rerank endpoint speaks the
// common rerank API (query + documents in, relevance scores out).
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API base, e.g. "https://api.openai.com".
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates completion and embedding calls.
	APIKey string `yaml:"api_key"`
	// Model is the chat completion model name.
	Model string `yaml:"model"`
	// EmbedModel is the embedding model name.
	EmbedModel string `yaml:"embed_model"`
	// RerankURL is the rerank endpoint; empty disables model reranking and
	// the reranker runs in neutral pass-through mode.
	RerankURL string `yaml:"rerank_url"`
	// RerankModel is the rerank model name.
	RerankModel string `yaml:"rerank_model"`
	// Timeout bounds a single model call.
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig holds zap logging settings.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the baseline configuration. Every loader starts from this
// and applies file and environment overrides on top.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			FusionAlpha:   0.4,
			PreSelectionK: 200,
			FinalLimit:    20,
		},
		Rerank: RerankConfig{
			TopN:      10,
			Threshold: 0,
		},
		Search: SearchConfig{
			MaxResults:     5,
			ScrapeDelay:    2500 * time.Millisecond,
			RequestTimeout: 15 * time.Second,
			PreferredDomains: []string{
				"indiankanoon.org",
				"legalserviceindia.com",
				"scconline.com",
				"livelaw.in",
				"barandbench.com",
				"sci.gov.in",
				"indiacode.nic.in",
				"ecourts.gov.in",
			},
			CaseLawSite: "indiankanoon.org",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     30 * time.Minute,
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				PoolSize:     10,
				MinIdleConns: 2,
			},
		},
		Executor: ExecutorConfig{
			TaskTimeout:          30 * time.Second,
			ClarificationCheck:   true,
			SynthesisTopN:        10,
			SynthesisTokenBudget: 6000,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "lexflow",
			Name:            "lexflow",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		LLM: LLMConfig{
			BaseURL:    "https://api.openai.com",
			Model:      "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
			Timeout:    60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "lexflow",
		},
	}
}

// Validate checks invariants the rest of the core relies on.
func (c *Config) Validate() error {
	if c.Retrieval.FusionAlpha < 0 || c.Retrieval.FusionAlpha > 1 {
		return fmt.Errorf("retrieval.fusion_alpha must be in [0,1], got %v", c.Retrieval.FusionAlpha)
	}
	if c.Retrieval.PreSelectionK <= 0 {
		return fmt.Errorf("retrieval.pre_selection_k must be positive, got %d", c.Retrieval.PreSelectionK)
	}
	if c.Rerank.TopN <= 0 {
		return fmt.Errorf("rerank.top_n must be positive, got %d", c.Rerank.TopN)
	}
	if c.Rerank.Threshold < 0 || c.Rerank.Threshold > 1 {
		return fmt.Errorf("rerank.threshold must be in [0,1], got %v", c.Rerank.Threshold)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Executor.TaskTimeout <= 0 {
		return fmt.Errorf("executor.task_timeout must be positive, got %v", c.Executor.TaskTimeout)
	}
	return nil
}
