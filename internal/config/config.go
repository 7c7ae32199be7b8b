package config

import (
	"time"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Config represents the full application configuration. It is loaded once at
// startup into an immutable value and passed explicitly through the pipeline;
// stages never read process-wide state.
type Config struct {
	ModelProvider  string               `mapstructure:"model_provider"`
	API            APIConfig            `mapstructure:"api"`
	Ollama         OllamaConfig         `mapstructure:"ollama"`
	StaticAnalysis StaticAnalysisConfig `mapstructure:"static_analysis"`
	CommentFormat  string               `mapstructure:"comment_format"`
	MaxSuggestions int                  `mapstructure:"max_suggestions"`
	Prompt         PromptConfig         `mapstructure:"prompt"`
	Comment        CommentConfig        `mapstructure:"comment"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Cache          CacheConfig          `mapstructure:"cache"`
}

// APIConfig configures the remote OpenAI-compatible backend. The API key is
// sourced exclusively from the REVIEWBUDDY_API_KEY environment variable; a
// key found in the file is ignored.
type APIConfig struct {
	Endpoint string `mapstructure:"api_endpoint"`
	Model    string `mapstructure:"model_name"`
	APIKey   string `mapstructure:"-"`
}

// OllamaConfig configures the local inference backend.
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"ollama_model"`
}

// StaticAnalysisConfig configures the analyzer stage.
type StaticAnalysisConfig struct {
	Enabled           bool                `mapstructure:"enabled"`
	Tools             map[string][]string `mapstructure:"tools"`
	SeverityThreshold string              `mapstructure:"severity_threshold"`
	ToolTimeout       string              `mapstructure:"tool_timeout"`
}

// PromptConfig bounds the prompt handed to the model backend.
type PromptConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// CommentConfig bounds the rendered comment.
type CommentConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// HTTPConfig holds shared HTTP client settings for the AI backends.
type HTTPConfig struct {
	Timeout           string  `mapstructure:"timeout"`
	MaxRetries        int     `mapstructure:"max_retries"`
	InitialBackoff    string  `mapstructure:"initial_backoff"`
	MaxBackoff        string  `mapstructure:"max_backoff"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Level         string `mapstructure:"level"`  // debug, info, error
	Format        string `mapstructure:"format"` // json, human, auto
	RedactAPIKeys bool   `mapstructure:"redact_api_keys"`
}

// CacheConfig configures the optional completion cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Providers recognised by the synthesis stage.
const (
	ProviderAPI    = "api"
	ProviderOllama = "ollama"
)

// Comment formats recognised by the renderer.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// SeverityThreshold returns the parsed severity threshold.
func (c StaticAnalysisConfig) Threshold() (domain.Severity, error) {
	return domain.ParseSeverity(c.SeverityThreshold)
}

// ToolTimeoutDuration returns the per-tool timeout, falling back to the
// default when unset or invalid.
func (c StaticAnalysisConfig) ToolTimeoutDuration() time.Duration {
	if c.ToolTimeout == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(c.ToolTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// HTTPTimeout returns the parsed AI backend timeout with a default.
func (c HTTPConfig) HTTPTimeout() time.Duration {
	if c.Timeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Validate checks that the configuration satisfies the fatal preconditions.
// Any violation is a domain.ConfigurationError: the run aborts before any
// analysis starts.
func Validate(cfg Config) error {
	switch cfg.ModelProvider {
	case ProviderAPI, ProviderOllama:
	default:
		return domain.NewConfigurationError("model_provider", "must be %q or %q, got %q",
			ProviderAPI, ProviderOllama, cfg.ModelProvider)
	}

	if cfg.ModelProvider == ProviderAPI && cfg.API.APIKey == "" {
		return domain.NewConfigurationError("api.api_key",
			"REVIEWBUDDY_API_KEY environment variable is required when model_provider is %q", ProviderAPI)
	}

	switch cfg.CommentFormat {
	case FormatMarkdown, FormatText:
	default:
		return domain.NewConfigurationError("comment_format", "must be %q or %q, got %q",
			FormatMarkdown, FormatText, cfg.CommentFormat)
	}

	if cfg.MaxSuggestions < 0 {
		return domain.NewConfigurationError("max_suggestions", "must not be negative, got %d", cfg.MaxSuggestions)
	}

	if _, err := cfg.StaticAnalysis.Threshold(); err != nil {
		return domain.NewConfigurationError("static_analysis.severity_threshold", "%v", err)
	}

	return nil
}
