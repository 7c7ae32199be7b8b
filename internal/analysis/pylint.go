package analysis

import (
	"bytes"
	"encoding/json"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// pylintMessage mirrors one entry of pylint's --output-format=json array.
type pylintMessage struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	MessageID string `json:"message-id"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
}

type pylintParser struct{}

func (pylintParser) Tool() domain.Tool { return domain.ToolPylint }

func (pylintParser) Parse(raw []byte) ([]domain.Finding, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var messages []pylintMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, &domain.ParseError{Tool: domain.ToolPylint, Err: err}
	}

	findings := make([]domain.Finding, 0, len(messages))
	for _, m := range messages {
		if m.Path == "" {
			continue
		}
		ruleID := m.MessageID
		if ruleID == "" {
			ruleID = m.Symbol
		}
		findings = append(findings, domain.Finding{
			Tool:     domain.ToolPylint,
			FilePath: m.Path,
			Line:     m.Line,
			Column:   m.Column,
			RuleID:   ruleID,
			Message:  m.Message,
			Severity: pylintSeverity(m.Type),
		})
	}
	return findings, nil
}

// pylintSeverity maps pylint message categories onto the shared scale.
// Unknown categories rank as info.
func pylintSeverity(category string) domain.Severity {
	switch category {
	case "error", "fatal":
		return domain.SeverityError
	case "warning":
		return domain.SeverityWarning
	default: // convention, refactor, info
		return domain.SeverityInfo
	}
}
