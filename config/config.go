package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/PeterSurowski/ai-event-search/cache"
	"github.com/PeterSurowski/ai-event-search/llm"
	"github.com/PeterSurowski/ai-event-search/observe"
	"github.com/PeterSurowski/ai-event-search/secret"
	"github.com/PeterSurowski/ai-event-search/server"
	"github.com/PeterSurowski/ai-event-search/store"
)

// EnvPrefix prefixes every environment override, e.g.
// EVENTSEARCH_DATABASE_DSN for database.dsn.
const EnvPrefix = "EVENTSEARCH"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the complete service configuration.
type Config struct {
	Server   server.Config             `mapstructure:"server"`
	Database store.Config              `mapstructure:"database"`
	Observe  observe.Config            `mapstructure:"observe"`
	Auth     AuthConfig                `mapstructure:"auth"`
	Query    QueryConfig               `mapstructure:"query"`
	Audit    AuditConfig               `mapstructure:"audit"`
	LLM      LLMConfig                 `mapstructure:"llm"`
	Cache    CacheConfig               `mapstructure:"cache"`
	Secrets  map[string]map[string]any `mapstructure:"secrets"`
}

// AuthConfig configures credential resolution.
type AuthConfig struct {
	// AllowFallbackToken enables FallbackToken for calls that present no
	// credential. Off by default.
	AllowFallbackToken bool          `mapstructure:"allow_fallback_token"`
	FallbackToken      string        `mapstructure:"fallback_token"`
	TouchTimeout       time.Duration `mapstructure:"touch_timeout"`
}

// QueryConfig bounds gate operations.
type QueryConfig struct {
	DefaultLimit   int `mapstructure:"default_limit"`
	MaxLimit       int `mapstructure:"max_limit"`
	SummaryLimit   int `mapstructure:"summary_limit"`
	MaxQueryLength int `mapstructure:"max_query_length"`
}

// AuditConfig selects audit sinks. At least one must be enabled.
type AuditConfig struct {
	// Stdout writes one JSON line per entry to standard output.
	Stdout bool `mapstructure:"stdout"`
	// Database stores hash-chained entries in the audit_log table.
	Database bool `mapstructure:"database"`
}

// LLMConfig configures the embedding and summarization collaborators.
type LLMConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	llm.Config `mapstructure:",squash"`
}

// CacheConfig configures the query embedding cache.
type CacheConfig struct {
	Backend    string            `mapstructure:"backend"` // none|memory|redis
	TTL        time.Duration     `mapstructure:"ttl"`
	MaxEntries int               `mapstructure:"max_entries"`
	Redis      cache.RedisConfig `mapstructure:"redis"`
}

// Policy returns the cache policy for the configured TTL.
func (c CacheConfig) Policy() cache.Policy {
	if c.Backend == CacheNone || c.TTL <= 0 {
		return cache.Disabled()
	}
	return cache.Policy{TTL: c.TTL}
}

// FallbackCredential returns the fallback credential when it is enabled.
func (c *Config) FallbackCredential() string {
	if !c.Auth.AllowFallbackToken {
		return ""
	}
	return c.Auth.FallbackToken
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", store.DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("observe.service_name", "eventsearch")
	v.SetDefault("observe.version", "dev")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", true)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	v.SetDefault("auth.allow_fallback_token", false)
	v.SetDefault("auth.fallback_token", "")
	v.SetDefault("auth.touch_timeout", 5*time.Second)

	v.SetDefault("query.default_limit", 10)
	v.SetDefault("query.max_limit", 100)
	v.SetDefault("query.summary_limit", 50)
	v.SetDefault("query.max_query_length", 1000)

	v.SetDefault("audit.stdout", true)
	v.SetDefault("audit.database", true)

	d := llm.DefaultConfig()
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.org_id", "")
	v.SetDefault("llm.embedding_model", d.EmbeddingModel)
	v.SetDefault("llm.dimensions", 0)
	v.SetDefault("llm.chat_model", d.ChatModel)
	v.SetDefault("llm.max_tokens", d.MaxTokens)
	v.SetDefault("llm.timeout", d.Timeout)
	v.SetDefault("llm.rate_limit", d.RateLimit)
	v.SetDefault("llm.burst", d.Burst)
	v.SetDefault("llm.max_concurrent", d.MaxConcurrent)
	v.SetDefault("llm.max_failures", d.MaxFailures)
	v.SetDefault("llm.reset_timeout", d.ResetTimeout)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("secrets.file.dir", "/run/secrets")
}

// Load reads path (optional) and the environment, applies defaults and
// validates the result. Secret references are left unresolved; call
// ResolveSecrets before use.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Addr == "" {
		bad("server.addr is required")
	}
	if !slices.Contains([]string{"debug", "release", "test"}, c.Server.Mode) {
		bad("server.mode %q is not debug, release or test", c.Server.Mode)
	}
	if !slices.Contains([]string{store.DriverPostgres, store.DriverSQLite}, c.Database.Driver) {
		bad("database.driver %q is not postgres or sqlite", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		bad("database.dsn is required")
	}
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: observe: %w", ErrInvalidConfig, err))
	}
	if c.Auth.AllowFallbackToken && strings.TrimSpace(c.Auth.FallbackToken) == "" {
		bad("auth.fallback_token is required when auth.allow_fallback_token is set")
	}

	q := c.Query
	if q.DefaultLimit <= 0 || q.MaxLimit <= 0 || q.DefaultLimit > q.MaxLimit {
		bad("query limits must satisfy 0 < default_limit (%d) <= max_limit (%d)", q.DefaultLimit, q.MaxLimit)
	}
	if q.SummaryLimit <= 0 || q.MaxQueryLength <= 0 {
		bad("query.summary_limit and query.max_query_length must be positive")
	}
	if !c.Audit.Stdout && !c.Audit.Database {
		bad("at least one audit sink must be enabled")
	}
	if !slices.Contains([]string{CacheNone, CacheMemory, CacheRedis}, c.Cache.Backend) {
		bad("cache.backend %q is not none, memory or redis", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		bad("cache.redis.addr is required for the redis backend")
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		bad("llm.api_key is required when llm.enabled is set")
	}
	return errors.Join(errs...)
}

// ResolveSecrets expands environment references and secretref values in
// the fields that carry credentials, using providers from reg configured
// by the secrets block. The env provider is always available.
func (c *Config) ResolveSecrets(ctx context.Context, reg *secret.Registry) error {
	providers := maps.Clone(c.Secrets)
	if providers == nil {
		providers = make(map[string]map[string]any)
	}
	if _, ok := providers["env"]; !ok {
		providers["env"] = nil
	}
	res, err := reg.Build(providers)
	if err != nil {
		return fmt.Errorf("config: secrets: %w", err)
	}
	defer res.Close()

	return res.ResolveInPlace(ctx,
		[]string{"database.dsn", "llm.api_key", "cache.redis.password", "auth.fallback_token"},
		&c.Database.DSN, &c.LLM.APIKey, &c.Cache.Redis.Password, &c.Auth.FallbackToken,
	)
}
