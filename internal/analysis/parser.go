package analysis

import (
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Parser converts the raw stdout of one analysis tool into normalized
// findings. Parsers are pure: they never touch the filesystem or network.
type Parser interface {
	// Tool identifies the tool whose output this parser understands.
	Tool() domain.Tool

	// Parse normalizes raw tool output. Output that cannot be interpreted
	// at all yields a domain.ParseError; individually malformed records
	// are skipped rather than failing the batch.
	Parse(raw []byte) ([]domain.Finding, error)
}

// ParserFor returns the parser for a configured tool name. Unknown tools are
// a configuration error: they are rejected before any analysis runs.
func ParserFor(tool domain.Tool) (Parser, error) {
	switch tool {
	case domain.ToolPylint:
		return pylintParser{}, nil
	case domain.ToolFlake8:
		return flake8Parser{}, nil
	case domain.ToolESLint:
		return eslintParser{}, nil
	default:
		return nil, domain.NewConfigurationError("static_analysis.tools",
			"unsupported analysis tool %q", tool)
	}
}

// Args returns the command-line arguments that make a tool emit output in
// the format its parser expects, with the target files appended.
func Args(tool domain.Tool, files []string) []string {
	var args []string
	switch tool {
	case domain.ToolPylint:
		args = []string{"--output-format=json"}
	case domain.ToolESLint:
		args = []string{"--format=json"}
	}
	return append(args, files...)
}
