package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/l1v0n1/ReviewBuddy/internal/adapter/cache"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/cli"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/git"
	githubadapter "github.com/l1v0n1/ReviewBuddy/internal/adapter/github"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/api"
	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/ollama"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/runner"
	"github.com/l1v0n1/ReviewBuddy/internal/config"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/review"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/synth"
	"github.com/l1v0n1/ReviewBuddy/internal/version"
)

// configPathEnv overrides the configuration file location.
const configPathEnv = "REVIEWBUDDY_CONFIG"

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv(configPathEnv))
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app := &application{cfg: cfg, logger: buildLogger(cfg.Logging)}

	root := cli.NewRootCommand(cli.Dependencies{
		PRReviewer:    app,
		LocalReviewer: app,
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// buildLogger creates the structured logger shared across the pipeline.
// The "auto" format picks human output on a terminal and JSON otherwise.
func buildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	if !cfg.Enabled {
		return nil
	}

	level := llmhttp.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = llmhttp.LogLevelDebug
	case "error":
		level = llmhttp.LogLevelError
	}

	format := llmhttp.LogFormatJSON
	switch cfg.Format {
	case "human":
		format = llmhttp.LogFormatHuman
	case "json":
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = llmhttp.LogFormatHuman
		}
	}

	return llmhttp.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

// retryConfig maps the HTTP config onto the shared retry settings.
func retryConfig(cfg config.HTTPConfig) llmhttp.RetryConfig {
	conf := llmhttp.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		conf.MaxRetries = cfg.MaxRetries
	}
	if d := parseDuration(cfg.InitialBackoff); d > 0 {
		conf.InitialBackoff = d
	}
	if d := parseDuration(cfg.MaxBackoff); d > 0 {
		conf.MaxBackoff = d
	}
	if cfg.BackoffMultiplier > 1 {
		conf.Multiplier = cfg.BackoffMultiplier
	}
	return conf
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Compile-time interface compliance checks
var _ cli.PRReviewer = (*application)(nil)
var _ cli.LocalReviewer = (*application)(nil)
var _ synth.Provider = (*api.Client)(nil)
var _ synth.Provider = (*ollama.Client)(nil)
var _ synth.Provider = (*cache.Provider)(nil)
var _ review.ToolRunner = (*runner.ExecRunner)(nil)
var _ review.Synthesizer = (*synth.Synthesizer)(nil)
var _ review.Publisher = (*githubadapter.Publisher)(nil)
var _ review.Logger = (*llmhttp.DefaultLogger)(nil)
var _ interface{ CurrentBranch() (string, error) } = (*git.Engine)(nil)
