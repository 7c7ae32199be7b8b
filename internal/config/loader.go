package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFileName is the configuration file looked up in the repository root.
const DefaultFileName = ".reviewbuddy.yml"

// APIKeyEnv names the environment variable carrying the remote backend key.
// The key is never read from the configuration file.
const APIKeyEnv = "REVIEWBUDDY_API_KEY"

// Load reads configuration from the given path, merged over defaults and
// environment variables. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	v := newViper()

	if path == "" {
		path = DefaultFileName
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return unmarshal(v)
}

// Parse reads configuration from raw YAML bytes, merged over defaults. Used
// when the file is fetched from the repository via the host API instead of
// the local filesystem.
func Parse(data []byte) (Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("REVIEWBUDDY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// The API key comes from the environment only, never from the file.
	cfg.API.APIKey = os.Getenv(APIKeyEnv)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_provider", ProviderAPI)

	v.SetDefault("api.api_endpoint", "https://api.openai.com/v1")
	v.SetDefault("api.model_name", "gpt-4o")

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.ollama_model", "llama3.2")

	v.SetDefault("static_analysis.enabled", true)
	v.SetDefault("static_analysis.tools", map[string][]string{
		"python":     {"pylint", "flake8"},
		"javascript": {"eslint"},
		"typescript": {"eslint"},
	})
	v.SetDefault("static_analysis.severity_threshold", "warning")
	v.SetDefault("static_analysis.tool_timeout", "2m")

	v.SetDefault("comment_format", FormatMarkdown)
	v.SetDefault("max_suggestions", 10)

	v.SetDefault("prompt.max_chars", 32000)
	v.SetDefault("comment.max_chars", 65000)

	v.SetDefault("http.timeout", "60s")
	v.SetDefault("http.max_retries", 1)
	v.SetDefault("http.initial_backoff", "2s")
	v.SetDefault("http.max_backoff", "8s")
	v.SetDefault("http.backoff_multiplier", 2.0)

	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
	v.SetDefault("logging.redact_api_keys", true)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", ".reviewbuddy-cache.db")
}
