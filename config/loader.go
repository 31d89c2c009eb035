package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "LEXFLOW"

// Loader resolves configuration with the precedence
// defaults -> YAML file -> environment variables.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// WithConfigPath sets the YAML file to load. Missing files are not an error;
// the loader falls through to defaults plus env overrides.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the final configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides individual fields from the environment. Only knobs that
// operators actually turn at deploy time are exposed here; structural
// settings stay file-only.
func (l *Loader) applyEnv(cfg *Config) {
	l.envFloat("RETRIEVAL_FUSION_ALPHA", &cfg.Retrieval.FusionAlpha)
	l.envInt("RETRIEVAL_PRE_SELECTION_K", &cfg.Retrieval.PreSelectionK)
	l.envInt("RETRIEVAL_FINAL_LIMIT", &cfg.Retrieval.FinalLimit)

	l.envInt("RERANK_TOP_N", &cfg.Rerank.TopN)
	l.envFloat("RERANK_THRESHOLD", &cfg.Rerank.Threshold)

	l.envInt("SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	l.envDuration("SEARCH_SCRAPE_DELAY", &cfg.Search.ScrapeDelay)
	l.envString("SEARCH_API_KEY", &cfg.Search.APIKey)
	l.envString("SEARCH_API_ENDPOINT", &cfg.Search.APIEndpoint)

	l.envString("CACHE_BACKEND", &cfg.Cache.Backend)
	l.envDuration("CACHE_TTL", &cfg.Cache.TTL)
	l.envString("CACHE_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	l.envString("CACHE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)

	l.envDuration("EXECUTOR_TASK_TIMEOUT", &cfg.Executor.TaskTimeout)
	l.envInt("EXECUTOR_SYNTHESIS_TOP_N", &cfg.Executor.SynthesisTopN)

	l.envString("DATABASE_HOST", &cfg.Database.Host)
	l.envInt("DATABASE_PORT", &cfg.Database.Port)
	l.envString("DATABASE_USER", &cfg.Database.User)
	l.envString("DATABASE_PASSWORD", &cfg.Database.Password)
	l.envString("DATABASE_NAME", &cfg.Database.Name)

	l.envString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	l.envString("LLM_API_KEY", &cfg.LLM.APIKey)
	l.envString("LLM_MODEL", &cfg.LLM.Model)
	l.envString("LLM_EMBED_MODEL", &cfg.LLM.EmbedModel)
	l.envString("LLM_RERANK_URL", &cfg.LLM.RerankURL)

	l.envString("LOG_LEVEL", &cfg.Log.Level)
	l.envString("LOG_FORMAT", &cfg.Log.Format)
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) envString(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *Loader) envInt(key string, dst *int) {
	if v, ok := l.lookup(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) envFloat(key string, dst *float64) {
	if v, ok := l.lookup(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

func (l *Loader) envDuration(key string, dst *time.Duration) {
	if v, ok := l.lookup(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}
