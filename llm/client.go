package llm

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PeterSurowski/ai-event-search/resilience"
)

// Config configures the OpenAI-compatible collaborators.
type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	OrgID   string `mapstructure:"org_id"`

	EmbeddingModel string `mapstructure:"embedding_model"`
	// Dimensions, when positive, is requested from the API and enforced on
	// every returned vector.
	Dimensions int `mapstructure:"dimensions"`

	ChatModel string `mapstructure:"chat_model"`
	MaxTokens int    `mapstructure:"max_tokens"`

	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	Burst         int           `mapstructure:"burst"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxFailures   int           `mapstructure:"max_failures"`
	ResetTimeout  time.Duration `mapstructure:"reset_timeout"`
}

// DefaultConfig returns the defaults used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		EmbeddingModel: string(openai.SmallEmbedding3),
		ChatModel:      openai.GPT4oMini,
		MaxTokens:      400,
		Timeout:        15 * time.Second,
		RateLimit:      20,
		Burst:          5,
		MaxConcurrent:  8,
		MaxFailures:    5,
		ResetTimeout:   30 * time.Second,
	}
}

// NewClient builds an API client from cfg.
func NewClient(cfg Config) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	if cfg.OrgID != "" {
		cc.OrgID = cfg.OrgID
	}
	cc.HTTPClient = &http.Client{}
	return openai.NewClientWithConfig(cc), nil
}

// NewExecutor builds the guard chain for one collaborator. name labels the
// circuit breaker in health reports.
func NewExecutor(name string, cfg Config, onStateChange func(name string, from, to resilience.State)) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.Burst,
		})),
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
		})),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          name,
			MaxFailures:   cfg.MaxFailures,
			ResetTimeout:  cfg.ResetTimeout,
			OnStateChange: onStateChange,
		})),
		resilience.WithTimeout(cfg.Timeout),
	)
}
