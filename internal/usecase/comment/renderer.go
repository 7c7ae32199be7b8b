// Package comment renders a review result into the single PR comment body.
package comment

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
	"github.com/l1v0n1/ReviewBuddy/internal/usecase/findings"
)

// Marker is an invisible tag embedded in every markdown comment. The
// publisher looks for it to update an existing comment instead of posting a
// new one on each run.
const Marker = "<!-- reviewbuddy -->"

var titleCaser = cases.Title(language.English)

// Renderer produces the comment body for a review result. Rendering is a
// pure function of its inputs: the same result and settings always produce
// byte-identical output.
type Renderer struct {
	// Format is "markdown" or "text".
	Format string

	// MaxSuggestions caps the rendered AI suggestions; zero hides the
	// suggestions section entirely. Negative means no cap.
	MaxSuggestions int

	// MaxChars bounds the rendered body; zero disables the bound. When the
	// body exceeds the bound, suggestion bodies are dropped first, then
	// finding messages, then the summary, and a hard cut applies last.
	MaxChars int
}

type renderOpts struct {
	suggestionBodies bool
	findingMessages  bool
	summary          bool
}

// Render builds the comment body.
func (r Renderer) Render(res domain.ReviewResult) string {
	opts := renderOpts{suggestionBodies: true, findingMessages: true, summary: true}
	out := r.render(res, opts)
	if r.MaxChars <= 0 || len(out) <= r.MaxChars {
		return out
	}

	for _, opts := range []renderOpts{
		{suggestionBodies: false, findingMessages: true, summary: true},
		{suggestionBodies: false, findingMessages: false, summary: true},
		{suggestionBodies: false, findingMessages: false, summary: false},
	} {
		out = r.render(res, opts)
		if len(out) <= r.MaxChars {
			return out
		}
	}
	return truncate(out, r.MaxChars)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (r Renderer) render(res domain.ReviewResult, opts renderOpts) string {
	var b strings.Builder

	if r.markdown() {
		b.WriteString(Marker)
		b.WriteString("\n")
	}

	r.heading(&b, 2, "🤖", "ReviewBuddy Analysis")

	if len(res.Degraded) > 0 {
		for _, notice := range res.Degraded {
			if r.markdown() {
				fmt.Fprintf(&b, "> ⚠️ %s\n", notice)
			} else {
				fmt.Fprintf(&b, "[partial] %s\n", notice)
			}
		}
		b.WriteString("\n")
	}

	r.heading(&b, 3, "🧠", "AI Summary")
	switch {
	case !opts.summary:
		b.WriteString("(summary omitted to fit the comment size limit)\n\n")
	case res.Summary == "":
		b.WriteString("No summary available.\n\n")
	default:
		b.WriteString(res.Summary)
		b.WriteString("\n\n")
	}

	r.renderSuggestions(&b, res.Suggestions, opts)
	r.renderFindings(&b, res.Findings, opts)

	return b.String()
}

func (r Renderer) renderSuggestions(b *strings.Builder, suggestions []domain.AISuggestion, opts renderOpts) {
	if len(suggestions) == 0 || r.MaxSuggestions == 0 {
		return
	}

	shown := suggestions
	omitted := 0
	if r.MaxSuggestions > 0 && len(suggestions) > r.MaxSuggestions {
		shown = suggestions[:r.MaxSuggestions]
		omitted = len(suggestions) - r.MaxSuggestions
	}

	r.heading(b, 3, "💡", "Suggestions")
	for i, s := range shown {
		title := s.Title
		if s.FilePath != "" {
			loc := s.FilePath
			if s.Line > 0 {
				loc = fmt.Sprintf("%s:%d", s.FilePath, s.Line)
			}
			title = fmt.Sprintf("%s (%s)", title, loc)
		}
		if r.markdown() {
			fmt.Fprintf(b, "%d. **%s**\n", i+1, title)
		} else {
			fmt.Fprintf(b, "%d. %s\n", i+1, title)
		}
		if opts.suggestionBodies && s.Body != "" {
			fmt.Fprintf(b, "   %s\n", s.Body)
		}
		b.WriteString("\n")
	}
	if omitted > 0 {
		fmt.Fprintf(b, "_%d additional suggestions omitted._\n\n", omitted)
	}
}

func (r Renderer) renderFindings(b *strings.Builder, all []domain.Finding, opts renderOpts) {
	if len(all) == 0 {
		return
	}

	r.heading(b, 3, "🔍", "Static Analysis")

	groups := findings.GroupByTool(all)
	for _, tool := range toolOrder(groups) {
		r.heading(b, 4, "", string(tool))
		for _, f := range groups[tool] {
			severity := titleCaser.String(f.Severity.String())
			detail := f.RuleID
			if opts.findingMessages && f.Message != "" {
				detail = fmt.Sprintf("%s %s", f.RuleID, f.Message)
			}
			if r.markdown() {
				fmt.Fprintf(b, "- **%s**: %s [%s:%d]\n", severity, detail, f.FilePath, f.Line)
			} else {
				fmt.Fprintf(b, "- %s: %s [%s:%d]\n", severity, detail, f.FilePath, f.Line)
			}
		}
		b.WriteString("\n")
	}
}

// toolOrder returns tools in the order their sections appear: the built-in
// tools first, then anything else alphabetically.
func toolOrder(groups map[domain.Tool][]domain.Finding) []domain.Tool {
	known := []domain.Tool{domain.ToolPylint, domain.ToolFlake8, domain.ToolESLint}

	var order []domain.Tool
	seen := make(map[domain.Tool]bool)
	for _, t := range known {
		if _, ok := groups[t]; ok {
			order = append(order, t)
			seen[t] = true
		}
	}

	var extra []domain.Tool
	for t := range groups {
		if !seen[t] {
			extra = append(extra, t)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}

func (r Renderer) markdown() bool {
	return r.Format != "text"
}

func (r Renderer) heading(b *strings.Builder, level int, emoji, text string) {
	if r.markdown() {
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		if emoji != "" {
			b.WriteString(emoji)
			b.WriteString(" ")
		}
		b.WriteString(text)
		b.WriteString("\n\n")
		return
	}
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(text)))
	b.WriteString("\n\n")
}
