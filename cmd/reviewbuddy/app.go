package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/l1v0n1/ReviewBuddy/internal/adapter/cache"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/cli"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/git"
	githubadapter "github.com/l1v0n1/ReviewBuddy/internal/adapter/github"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/llm"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/api"
	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/ollama"
	"github.com/l1v0n1/ReviewBuddy/internal/adapter/runner"
	"github.com/l1v0n1/ReviewBuddy/internal/config"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/comment"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/review"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/synth"
)

// githubTokenEnv carries the token used for all GitHub API calls.
const githubTokenEnv = "GITHUB_TOKEN"

// application implements the CLI's reviewer interfaces by assembling the
// pipeline per invocation from the effective configuration.
type application struct {
	cfg    config.Config
	logger llmhttp.Logger
}

// ReviewPR fetches the pull request context from GitHub, runs the pipeline
// and posts the result as a PR comment. A .reviewbuddy.yml checked into the
// reviewed repository overrides the local configuration.
func (a *application) ReviewPR(ctx context.Context, req cli.PRRequest) (review.Result, error) {
	token := os.Getenv(githubTokenEnv)
	if token == "" {
		return review.Result{}, domain.NewConfigurationError("github.token",
			"%s environment variable is required for pull request reviews", githubTokenEnv)
	}

	client := githubadapter.NewClient(token)

	cfg, err := a.repoConfig(ctx, client, req.Owner, req.Repo)
	if err != nil {
		return review.Result{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return review.Result{}, err
	}

	rc, err := client.FetchReviewContext(ctx, req.Owner, req.Repo, req.Number)
	if err != nil {
		return review.Result{}, fmt.Errorf("fetch pull request: %w", err)
	}

	var publisher review.Publisher
	if !req.DryRun {
		publisher = githubadapter.NewPublisher(client, req.Owner, req.Repo, comment.Marker)
	}

	orch, err := a.buildOrchestrator(ctx, cfg, publisher)
	if err != nil {
		return review.Result{}, err
	}
	return orch.Run(ctx, rc)
}

// ReviewLocal diffs two refs in the working repository and prints the
// rendered review without publishing anywhere.
func (a *application) ReviewLocal(ctx context.Context, req cli.LocalRequest) (review.Result, error) {
	cfg := a.cfg
	if err := config.Validate(cfg); err != nil {
		return review.Result{}, err
	}

	repository := req.Repository
	if repository == "" {
		repository = repositoryName(".")
	}

	rc, err := git.NewEngine(".").ReviewContext(ctx, repository, req.BaseRef, req.TargetRef)
	if err != nil {
		return review.Result{}, fmt.Errorf("compute diff: %w", err)
	}

	orch, err := a.buildOrchestrator(ctx, cfg, nil)
	if err != nil {
		return review.Result{}, err
	}
	return orch.Run(ctx, rc)
}

// CurrentBranch reports the checked out branch of the working repository.
func (a *application) CurrentBranch() (string, error) {
	return git.NewEngine(".").CurrentBranch()
}

// repoConfig returns the effective configuration for a pull request review.
// A .reviewbuddy.yml at the head of the reviewed repository takes precedence
// over the locally loaded file.
func (a *application) repoConfig(ctx context.Context, client *githubadapter.Client, owner, repo string) (config.Config, error) {
	raw, err := client.FetchFile(ctx, owner, repo, config.DefaultFileName, "")
	if err != nil {
		return config.Config{}, fmt.Errorf("fetch repository config: %w", err)
	}
	if raw == nil {
		return a.cfg, nil
	}

	cfg, err := config.Parse(raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("parse repository config: %w", err)
	}
	return cfg, nil
}

func (a *application) buildOrchestrator(ctx context.Context, cfg config.Config, publisher review.Publisher) (*review.Orchestrator, error) {
	provider, err := a.buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	threshold, err := cfg.StaticAnalysis.Threshold()
	if err != nil {
		return nil, err
	}

	synthesizer := synth.New(provider, retryConfig(cfg.HTTP), a.logger, llm.EstimateTokens, cfg.Prompt.MaxChars)

	renderer := comment.Renderer{
		Format:         cfg.CommentFormat,
		MaxSuggestions: cfg.MaxSuggestions,
		MaxChars:       cfg.Comment.MaxChars,
	}

	var reviewLogger review.Logger
	if a.logger != nil {
		reviewLogger = a.logger
	}

	return review.NewOrchestrator(review.OrchestratorDeps{
		Runner:          runner.NewExecRunner("."),
		Synthesizer:     synthesizer,
		Renderer:        renderer,
		Publisher:       publisher,
		Logger:          reviewLogger,
		Tools:           cfg.StaticAnalysis.Tools,
		Threshold:       threshold,
		ToolTimeout:     cfg.StaticAnalysis.ToolTimeoutDuration(),
		AnalysisEnabled: cfg.StaticAnalysis.Enabled,
	}), nil
}

// buildProvider selects the AI backend. The ollama provider is probed first
// and the run falls back to the remote API when the local server is
// unreachable or the model is missing, matching the behavior users expect
// from a laptop setup where ollama is not always running.
func (a *application) buildProvider(ctx context.Context, cfg config.Config) (synth.Provider, error) {
	var provider synth.Provider

	switch cfg.ModelProvider {
	case config.ProviderOllama:
		client := ollama.NewClient(cfg.Ollama.BaseURL, cfg.Ollama.Model, 0)
		found, err := client.Available(ctx)
		if err == nil && found {
			provider = client
			break
		}

		if err != nil {
			log.Printf("warning: ollama unavailable: %v", err)
		} else {
			log.Printf("warning: ollama model %q not found, run: ollama pull %s", cfg.Ollama.Model, cfg.Ollama.Model)
		}

		if cfg.API.APIKey != "" {
			log.Printf("falling back to API provider with model %s", cfg.API.Model)
			provider = api.NewClient(cfg.API.Endpoint, cfg.API.APIKey, cfg.API.Model, cfg.HTTP.HTTPTimeout())
		} else {
			provider = client
		}

	case config.ProviderAPI:
		provider = api.NewClient(cfg.API.Endpoint, cfg.API.APIKey, cfg.API.Model, cfg.HTTP.HTTPTimeout())

	default:
		return nil, domain.NewConfigurationError("model_provider", "unsupported provider %q", cfg.ModelProvider)
	}

	if cfg.Cache.Enabled {
		cached, err := cache.New(provider, cfg.Cache.Path)
		if err != nil {
			log.Printf("warning: completion cache disabled: %v", err)
			return provider, nil
		}
		return cached, nil
	}

	return provider, nil
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}
