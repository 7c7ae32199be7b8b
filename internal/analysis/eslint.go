package analysis

import (
	"bytes"
	"encoding/json"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// eslintResult mirrors one file entry of eslint's --format=json output.
type eslintResult struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fatal    bool   `json:"fatal"`
}

type eslintParser struct{}

func (eslintParser) Tool() domain.Tool { return domain.ToolESLint }

func (eslintParser) Parse(raw []byte) ([]domain.Finding, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var results []eslintResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, &domain.ParseError{Tool: domain.ToolESLint, Err: err}
	}

	var findings []domain.Finding
	for _, r := range results {
		for _, m := range r.Messages {
			ruleID := m.RuleID
			if ruleID == "" {
				// Parse failures carry no rule; eslint marks them fatal.
				ruleID = "syntax-error"
			}
			findings = append(findings, domain.Finding{
				Tool:     domain.ToolESLint,
				FilePath: r.FilePath,
				Line:     m.Line,
				Column:   m.Column,
				RuleID:   ruleID,
				Message:  m.Message,
				Severity: eslintSeverity(m),
			})
		}
	}
	return findings, nil
}

func eslintSeverity(m eslintMessage) domain.Severity {
	if m.Fatal || m.Severity >= 2 {
		return domain.SeverityError
	}
	return domain.SeverityWarning
}
