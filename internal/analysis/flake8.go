package analysis

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

type flake8Parser struct{}

func (flake8Parser) Tool() domain.Tool { return domain.ToolFlake8 }

// Parse reads flake8's default line format:
//
//	path:line:col: CODE message
//
// Lines that do not match the format are skipped.
func (flake8Parser) Parse(raw []byte) ([]domain.Finding, error) {
	var findings []domain.Finding

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if f, ok := parseFlake8Line(line); ok {
			findings = append(findings, f)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.ParseError{Tool: domain.ToolFlake8, Err: err}
	}
	return findings, nil
}

func parseFlake8Line(line string) (domain.Finding, bool) {
	// Split off "path:line:col" from ": CODE message". The path may itself
	// contain colons on Windows; splitting from the right avoids that.
	sep := strings.Index(line, ": ")
	if sep < 0 {
		return domain.Finding{}, false
	}
	location, rest := line[:sep], line[sep+2:]

	parts := strings.Split(location, ":")
	if len(parts) < 3 {
		return domain.Finding{}, false
	}
	colStr := parts[len(parts)-1]
	lineStr := parts[len(parts)-2]
	path := strings.Join(parts[:len(parts)-2], ":")

	lineNo, err := strconv.Atoi(lineStr)
	if err != nil {
		return domain.Finding{}, false
	}
	colNo, err := strconv.Atoi(colStr)
	if err != nil {
		return domain.Finding{}, false
	}

	code, message, _ := strings.Cut(rest, " ")
	if code == "" {
		return domain.Finding{}, false
	}

	return domain.Finding{
		Tool:     domain.ToolFlake8,
		FilePath: path,
		Line:     lineNo,
		Column:   colNo,
		RuleID:   code,
		Message:  strings.TrimSpace(message),
		Severity: flake8Severity(code),
	}, true
}

// flake8Severity ranks syntax errors (E9xx) and pyflakes codes (Fxxx) as
// errors; everything else is a style warning.
func flake8Severity(code string) domain.Severity {
	if strings.HasPrefix(code, "E9") || strings.HasPrefix(code, "F") {
		return domain.SeverityError
	}
	return domain.SeverityWarning
}
