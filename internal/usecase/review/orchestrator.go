// Package review orchestrates a full review run: static analysis across the
// changed files, AI synthesis, and rendering of the final comment body.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/l1v0n1/ReviewBuddy/internal/analysis"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/findings"
)

// State tracks pipeline progress. Transitions are linear; Failed is
// reachable only from Init, where configuration problems surface. Every
// later stage degrades instead of failing so a review comment is always
// produced once the run starts.
type State int

const (
	StateInit State = iota
	StateRunAnalysis
	StateSynthesize
	StateRender
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunAnalysis:
		return "run_analysis"
	case StateSynthesize:
		return "synthesize"
	case StateRender:
		return "render"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ToolRunner executes one analysis tool against a set of files and returns
// its stdout. A non-zero exit with findings on stdout is a normal outcome,
// not an error.
type ToolRunner interface {
	Run(ctx context.Context, tool domain.Tool, args []string, timeout time.Duration) ([]byte, error)
}

// Synthesizer produces the AI analysis for a review context.
type Synthesizer interface {
	Analyze(ctx context.Context, rc domain.ReviewContext, fs []domain.Finding) (domain.AIAnalysis, error)
}

// Renderer turns a review result into the comment body.
type Renderer interface {
	Render(res domain.ReviewResult) string
}

// Publisher delivers the rendered comment, typically as a PR comment.
type Publisher interface {
	Publish(ctx context.Context, rc domain.ReviewContext, body string) error
}

// Logger records pipeline progress. The interface matches the structured
// logger used by the AI backend adapters.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// OrchestratorDeps captures the orchestrator's dependencies and settings.
type OrchestratorDeps struct {
	Runner      ToolRunner
	Synthesizer Synthesizer
	Renderer    Renderer
	Publisher   Publisher // Optional: nil renders without posting
	Logger      Logger    // Optional

	// Tools maps a language to the analysis tools that run on its files.
	Tools map[string][]string

	// Threshold drops findings below this severity.
	Threshold domain.Severity

	// ToolTimeout bounds each tool invocation.
	ToolTimeout time.Duration

	// AnalysisEnabled gates the static analysis stage.
	AnalysisEnabled bool
}

// Result captures a completed run.
type Result struct {
	Review domain.ReviewResult
	Body   string
	State  State
}

// Orchestrator drives the review pipeline.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator wires the orchestrator dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) validateDependencies() error {
	if o.deps.Runner == nil && o.deps.AnalysisEnabled {
		return errors.New("tool runner is required when static analysis is enabled")
	}
	if o.deps.Synthesizer == nil {
		return errors.New("synthesizer is required")
	}
	if o.deps.Renderer == nil {
		return errors.New("renderer is required")
	}
	// Publisher is optional
	// Logger is optional
	return nil
}

// Run executes the pipeline for one review context. Configuration problems
// fail the run before any analysis; every later stage records a degradation
// notice instead, so the returned Result always carries a rendered body once
// initialization succeeds.
func (o *Orchestrator) Run(ctx context.Context, rc domain.ReviewContext) (Result, error) {
	o.transition(ctx, StateInit)

	if err := o.validateDependencies(); err != nil {
		o.transition(ctx, StateFailed)
		return Result{State: StateFailed}, err
	}

	plan, err := o.planAnalysis(rc)
	if err != nil {
		o.transition(ctx, StateFailed)
		return Result{State: StateFailed}, err
	}

	result := domain.ReviewResult{}

	o.transition(ctx, StateRunAnalysis)
	raw, outputs, notices := o.runAnalysis(ctx, plan)
	rc.Outputs = outputs
	result.Degraded = append(result.Degraded, notices...)
	result.Findings = findings.Process(raw, o.deps.Threshold)

	o.transition(ctx, StateSynthesize)
	analysisResult, err := o.deps.Synthesizer.Analyze(ctx, rc, result.Findings)
	if err != nil {
		o.warn(ctx, "AI synthesis failed", map[string]interface{}{"error": err.Error()})
		result.Degraded = append(result.Degraded,
			fmt.Sprintf("AI analysis unavailable: %v", err))
	} else {
		result.Summary = analysisResult.Summary
		result.Suggestions = analysisResult.Suggestions
	}
	result.Partial = len(result.Degraded) > 0

	o.transition(ctx, StateRender)
	body := o.deps.Renderer.Render(result)

	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(ctx, rc, body); err != nil {
			return Result{Review: result, Body: body, State: StateRender},
				fmt.Errorf("publish review comment: %w", err)
		}
	}

	o.transition(ctx, StateDone)
	return Result{Review: result, Body: body, State: StateDone}, nil
}

// toolTask is one (tool, files) invocation of the analysis stage.
type toolTask struct {
	tool     domain.Tool
	language string
	files    []string
	parser   analysis.Parser
}

// planAnalysis resolves languages and parsers up front. An unknown tool
// name in the configuration is a configuration error and fails the run
// before anything executes.
func (o *Orchestrator) planAnalysis(rc domain.ReviewContext) ([]toolTask, error) {
	if !o.deps.AnalysisEnabled {
		return nil, nil
	}

	groups := analysis.GroupByLanguage(rc.Diff.ChangedPaths())

	var tasks []toolTask
	for _, lang := range analysis.Languages(groups) {
		for _, name := range o.deps.Tools[lang] {
			tool := domain.Tool(name)
			parser, err := analysis.ParserFor(tool)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, toolTask{
				tool:     tool,
				language: lang,
				files:    groups[lang],
				parser:   parser,
			})
		}
	}
	return tasks, nil
}

type toolResult struct {
	findings []domain.Finding
	output   *domain.ToolOutput
	notice   string
}

// runAnalysis fans the planned tool invocations out to goroutines and
// collects findings in plan order, keeping dedup tie-breaking and the
// degradation notice order independent of goroutine scheduling.
func (o *Orchestrator) runAnalysis(ctx context.Context, plan []toolTask) ([]domain.Finding, []domain.ToolOutput, []string) {
	if len(plan) == 0 {
		return nil, nil, nil
	}

	results := make([]toolResult, len(plan))
	var wg sync.WaitGroup
	for i, task := range plan {
		wg.Add(1)
		go func(i int, task toolTask) {
			defer wg.Done()
			results[i] = o.runTool(ctx, task)
		}(i, task)
	}
	wg.Wait()

	var (
		all     []domain.Finding
		outputs []domain.ToolOutput
		notices []string
	)
	for _, r := range results {
		all = append(all, r.findings...)
		if r.output != nil {
			outputs = append(outputs, *r.output)
		}
		if r.notice != "" {
			notices = append(notices, r.notice)
		}
	}
	return all, outputs, notices
}

func (o *Orchestrator) runTool(ctx context.Context, task toolTask) toolResult {
	args := analysis.Args(task.tool, task.files)

	out, err := o.deps.Runner.Run(ctx, task.tool, args, o.deps.ToolTimeout)
	if err != nil {
		o.warn(ctx, "analysis tool failed", map[string]interface{}{
			"tool": string(task.tool), "language": task.language, "error": err.Error(),
		})
		return toolResult{notice: fmt.Sprintf("%s did not run: %v", task.tool, err)}
	}

	output := &domain.ToolOutput{Tool: task.tool, Language: task.language, Raw: out}

	fs, err := task.parser.Parse(out)
	if err != nil {
		o.warn(ctx, "analysis output unreadable", map[string]interface{}{
			"tool": string(task.tool), "error": err.Error(),
		})
		return toolResult{output: output, notice: fmt.Sprintf("%s output could not be parsed: %v", task.tool, err)}
	}

	o.info(ctx, "analysis tool finished", map[string]interface{}{
		"tool": string(task.tool), "language": task.language, "findings": len(fs),
	})
	return toolResult{findings: fs, output: output}
}

func (o *Orchestrator) transition(ctx context.Context, s State) {
	o.info(ctx, "pipeline stage", map[string]interface{}{"state": s.String()})
}

func (o *Orchestrator) info(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogInfo(ctx, msg, fields)
	}
}

func (o *Orchestrator) warn(ctx context.Context, msg string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, msg, fields)
	}
}
