// Package synth builds the model prompt, calls the configured AI backend,
// and parses its response into a structured analysis.
package synth

import (
	"context"
	"time"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Provider is the AI backend port. Implementations wrap one HTTP API and
// return the raw completion text.
type Provider interface {
	// Name identifies the backend in logs and degradation notices.
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Complete sends a prompt and returns the completion text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenEstimator estimates prompt token counts for request logging.
type TokenEstimator func(text string) int

// Synthesizer turns a review context and its findings into an AI analysis.
type Synthesizer struct {
	provider Provider
	retry    llmhttp.RetryConfig
	logger   llmhttp.Logger
	tokens   TokenEstimator

	// MaxPromptChars bounds the prompt size; zero disables the bound.
	MaxPromptChars int
}

// New builds a Synthesizer. logger and estimate may be nil.
func New(provider Provider, retry llmhttp.RetryConfig, logger llmhttp.Logger, estimate TokenEstimator, maxPromptChars int) *Synthesizer {
	if estimate == nil {
		estimate = func(text string) int { return len(text) / 4 }
	}
	return &Synthesizer{
		provider:       provider,
		retry:          retry,
		logger:         logger,
		tokens:         estimate,
		MaxPromptChars: maxPromptChars,
	}
}

// Analyze builds the prompt, calls the backend with retry, and parses the
// response. A backend that stays down after retries yields a
// domain.AIBackendError; the caller decides whether that degrades or fails
// the review.
func (s *Synthesizer) Analyze(ctx context.Context, rc domain.ReviewContext, findings []domain.Finding) (domain.AIAnalysis, error) {
	prompt := BuildPrompt(rc, findings, s.MaxPromptChars)

	if s.logger != nil {
		s.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:     s.provider.Name(),
			Model:        s.provider.Model(),
			Timestamp:    time.Now(),
			PromptChars:  len(prompt.Text),
			PromptTokens: s.tokens(prompt.Text),
		})
		if len(prompt.OmittedFiles) > 0 {
			s.logger.LogWarning(ctx, "prompt truncated", map[string]interface{}{
				"omitted_files": len(prompt.OmittedFiles),
			})
		}
	}

	started := time.Now()
	var raw string
	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.provider.Complete(ctx, prompt.Text)
		return callErr
	}, s.retry)
	if err != nil {
		if s.logger != nil {
			s.logger.LogError(ctx, llmhttp.ErrorLog{
				Provider:  s.provider.Name(),
				Model:     s.provider.Model(),
				Timestamp: time.Now(),
				Duration:  time.Since(started),
				Error:     err,
				Retryable: llmhttp.ShouldRetry(err),
			})
		}
		return domain.AIAnalysis{}, &domain.AIBackendError{Provider: s.provider.Name(), Err: err}
	}

	if s.logger != nil {
		s.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:  s.provider.Name(),
			Model:     s.provider.Model(),
			Timestamp: time.Now(),
			Duration:  time.Since(started),
			TokensOut: s.tokens(raw),
		})
	}

	return ParseResponse(raw), nil
}
