package synth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

const promptHeader = `You are a code review assistant. Analyze the following pull request changes and respond with a JSON object of this shape:

{
  "summary": "one paragraph describing what the changes do",
  "suggestions": [
    {
      "title": "short imperative title",
      "body": "concrete explanation of the issue and how to fix it",
      "file_path": "path/to/file",
      "line": 0,
      "category": "bug | style | security | performance | maintainability"
    }
  ]
}

Focus on correctness, security, and maintainability. Do not repeat issues already listed in the static analysis findings below; build on them instead.`

// Prompt is a size-bounded model prompt built from a review context.
type Prompt struct {
	Text string

	// OmittedFiles lists files whose diff hunks were dropped to fit the
	// character budget, in the order they were dropped.
	OmittedFiles []string
}

// BuildPrompt assembles the model prompt from the PR metadata, the filtered
// findings, and the diff. When the assembled text exceeds maxChars, diff
// sections are dropped from the end of the file list until it fits; the
// instruction header and the findings digest are never dropped. The same
// context always yields the same prompt text.
func BuildPrompt(rc domain.ReviewContext, findings []domain.Finding, maxChars int) Prompt {
	var head strings.Builder
	head.WriteString(promptHeader)
	head.WriteString("\n\n")

	if rc.Title != "" {
		fmt.Fprintf(&head, "Pull request: %s\n", rc.Title)
	}
	if rc.Repository != "" {
		fmt.Fprintf(&head, "Repository: %s\n", rc.Repository)
	}
	head.WriteString("\n")

	writeFindingsDigest(&head, findings)

	sections := diffSections(rc.Diff)

	if maxChars <= 0 {
		var b strings.Builder
		b.WriteString(head.String())
		for _, s := range sections {
			b.WriteString(s.text)
		}
		return Prompt{Text: b.String()}
	}

	budget := maxChars - head.Len()
	kept := len(sections)
	total := 0
	for i, s := range sections {
		if total+len(s.text) > budget {
			kept = i
			break
		}
		total += len(s.text)
	}

	var omitted []string
	for _, s := range sections[kept:] {
		omitted = append(omitted, s.path)
	}

	var b strings.Builder
	b.WriteString(head.String())
	for _, s := range sections[:kept] {
		b.WriteString(s.text)
	}
	if len(omitted) > 0 {
		fmt.Fprintf(&b, "\n(%d file diffs omitted to fit the size limit)\n", len(omitted))
	}

	text := b.String()
	if len(text) > maxChars {
		text = truncate(text, maxChars)
	}
	return Prompt{Text: text, OmittedFiles: omitted}
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

type diffSection struct {
	path string
	text string
}

func diffSections(diff domain.Diff) []diffSection {
	sections := make([]diffSection, 0, len(diff.Files))
	for _, f := range diff.Files {
		if f.Patch == "" {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "--- %s (%s, +%d/-%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
		b.WriteString(f.Patch)
		if !strings.HasSuffix(f.Patch, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
		sections = append(sections, diffSection{path: f.Path, text: b.String()})
	}
	return sections
}

func writeFindingsDigest(b *strings.Builder, findings []domain.Finding) {
	if len(findings) == 0 {
		b.WriteString("Static analysis findings: none\n\n")
		return
	}
	b.WriteString("Static analysis findings:\n")
	for _, f := range findings {
		fmt.Fprintf(b, "- [%s] %s:%d %s %s\n", f.Severity, f.FilePath, f.Line, f.RuleID, f.Message)
	}
	b.WriteString("\n")
}
