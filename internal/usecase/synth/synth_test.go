package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

type stubProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func testContext() domain.ReviewContext {
	return domain.ReviewContext{
		Repository: "acme/widgets",
		PRNumber:   42,
		Title:      "Add widget cache",
		Diff: domain.Diff{Files: []domain.FileDiff{
			{Path: "cache.py", Status: domain.FileModified, Patch: "@@ -1 +1,2 @@\n+import os\n import sys", Additions: 1},
			{Path: "main.py", Status: domain.FileModified, Patch: "@@ -5 +5 @@\n-x = 1\n+x = 2", Additions: 1, Deletions: 1},
		}},
	}
}

func immediateRetry() llmhttp.RetryConfig {
	return llmhttp.RetryConfig{MaxRetries: 1, InitialBackoff: 0, MaxBackoff: 0, Multiplier: 1}
}

func TestBuildPromptIncludesDiffAndFindings(t *testing.T) {
	findings := []domain.Finding{{
		Tool: domain.ToolFlake8, FilePath: "cache.py", Line: 1,
		RuleID: "F401", Message: "'os' imported but unused", Severity: domain.SeverityError,
	}}

	p := BuildPrompt(testContext(), findings, 0)

	assert.Contains(t, p.Text, "Add widget cache")
	assert.Contains(t, p.Text, "cache.py:1 F401")
	assert.Contains(t, p.Text, "+import os")
	assert.Contains(t, p.Text, "-x = 1")
	assert.Empty(t, p.OmittedFiles)
}

func TestBuildPromptDropsTrailingFilesOverBudget(t *testing.T) {
	rc := testContext()
	rc.Diff.Files[1].Patch = strings.Repeat("+padding line\n", 500)

	full := BuildPrompt(rc, nil, 0)
	p := BuildPrompt(rc, nil, len(full.Text)-100)

	assert.Contains(t, p.Text, "+import os", "leading file survives")
	assert.NotContains(t, p.Text, "+padding line")
	assert.Equal(t, []string{"main.py"}, p.OmittedFiles)
	assert.Contains(t, p.Text, "1 file diffs omitted")
	assert.LessOrEqual(t, len(p.Text), len(full.Text)-100)
}

func TestBuildPromptHardCutNeverSplitsARune(t *testing.T) {
	rc := testContext()
	rc.Title = "Add widget cache 🤖 speedups"

	full := BuildPrompt(rc, nil, 0)
	cut := strings.Index(full.Text, "🤖") + 2 // inside the four-byte rune

	p := BuildPrompt(rc, nil, cut)
	assert.LessOrEqual(t, len(p.Text), cut)
	assert.True(t, utf8.ValidString(p.Text))
}

func TestBuildPromptDeterministic(t *testing.T) {
	rc := testContext()
	a := BuildPrompt(rc, nil, 4000)
	b := BuildPrompt(rc, nil, 4000)
	assert.Equal(t, a.Text, b.Text)
}

func TestParseResponseJSON(t *testing.T) {
	raw := "```json\n" + `{
		"summary": "Adds a cache layer.",
		"suggestions": [
			{"title": "Close the cache file", "body": "The handle leaks on error.", "file_path": "cache.py", "line": 7, "category": "Bug"}
		]
	}` + "\n```"

	analysis := ParseResponse(raw)

	assert.Equal(t, "Adds a cache layer.", analysis.Summary)
	require.Len(t, analysis.Suggestions, 1)
	assert.Equal(t, domain.AISuggestion{
		Title:    "Close the cache file",
		Body:     "The handle leaks on error.",
		FilePath: "cache.py",
		Line:     7,
		Category: "bug",
	}, analysis.Suggestions[0])
}

func TestParseResponseBareJSONWithDescriptionKey(t *testing.T) {
	analysis := ParseResponse(`{"summary": "ok", "suggestions": [{"title": "T", "description": "D"}]}`)
	require.Len(t, analysis.Suggestions, 1)
	assert.Equal(t, "D", analysis.Suggestions[0].Body)
}

func TestParseResponseHeuristic(t *testing.T) {
	raw := `Summary:
The change rewires the cache to disk.

Suggestions:
1. Validate the cache path
The path comes from user config and is joined unsanitized.
2. Add a size limit
- Guard against concurrent writes`

	analysis := ParseResponse(raw)

	assert.Contains(t, analysis.Summary, "rewires the cache")
	require.Len(t, analysis.Suggestions, 3)
	assert.Equal(t, "Validate the cache path", analysis.Suggestions[0].Title)
	assert.Contains(t, analysis.Suggestions[0].Body, "unsanitized")
	assert.Equal(t, "Add a size limit", analysis.Suggestions[1].Title)
	assert.Equal(t, "Guard against concurrent writes", analysis.Suggestions[2].Title)
}

func TestParseResponseRawFallback(t *testing.T) {
	raw := "The diff looks reasonable overall and no issues stand out."
	analysis := ParseResponse(raw)
	assert.Equal(t, raw, analysis.Summary)
	assert.Empty(t, analysis.Suggestions)
}

func TestParseResponseEmpty(t *testing.T) {
	assert.Equal(t, domain.AIAnalysis{}, ParseResponse("   \n"))
}

func TestAnalyzeSuccess(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"summary": "fine", "suggestions": []}`}}
	s := New(provider, immediateRetry(), nil, nil, 0)

	analysis, err := s.Analyze(context.Background(), testContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fine", analysis.Summary)
	assert.Equal(t, 1, provider.calls)
}

func TestAnalyzeRetriesOnceThenSucceeds(t *testing.T) {
	provider := &stubProvider{
		errs:      []error{llmhttp.NewServiceUnavailableError("stub", "service unavailable")},
		responses: []string{"", `{"summary": "recovered"}`},
	}
	s := New(provider, immediateRetry(), nil, nil, 0)

	analysis, err := s.Analyze(context.Background(), testContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", analysis.Summary)
	assert.Equal(t, 2, provider.calls)
}

func TestAnalyzeExhaustedRetriesReturnsBackendError(t *testing.T) {
	provider := &stubProvider{errs: []error{
		llmhttp.NewServiceUnavailableError("stub", "service unavailable"),
		llmhttp.NewServiceUnavailableError("stub", "service unavailable"),
	}}
	s := New(provider, immediateRetry(), nil, nil, 0)

	_, err := s.Analyze(context.Background(), testContext(), nil)
	require.Error(t, err)

	var backendErr *domain.AIBackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "stub", backendErr.Provider)
	assert.Equal(t, 2, provider.calls)
}

func TestAnalyzeNonRetryableFailsFast(t *testing.T) {
	provider := &stubProvider{errs: []error{llmhttp.NewAuthenticationError("stub", "invalid api key")}}
	s := New(provider, immediateRetry(), nil, nil, 0)

	_, err := s.Analyze(context.Background(), testContext(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestAnalyzeBoundsPrompt(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"summary": "ok"}`}}
	s := New(provider, immediateRetry(), nil, nil, 1200)

	rc := testContext()
	rc.Diff.Files[0].Patch = strings.Repeat("+line\n", 1000)

	_, err := s.Analyze(context.Background(), rc, nil)
	require.NoError(t, err)
	require.Len(t, provider.prompts, 1)
	assert.LessOrEqual(t, len(provider.prompts[0]), 1200)
}
