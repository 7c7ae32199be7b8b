package synth

import (
	"encoding/json"
	"strings"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// jsonResponse mirrors the JSON shape the prompt asks the model for. The
// description field covers models that ignore the requested key name.
type jsonResponse struct {
	Summary     string           `json:"summary"`
	Suggestions []jsonSuggestion `json:"suggestions"`
}

type jsonSuggestion struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Description string `json:"description"`
	FilePath    string `json:"file_path"`
	Line        int    `json:"line"`
	Category    string `json:"category"`
}

// ParseResponse turns raw model output into a structured analysis. It tries
// strict JSON first (with or without a markdown code fence), then a
// heuristic pass over prose, and finally falls back to treating the whole
// text as the summary. It never fails: a response that defeats every parser
// still yields a usable analysis.
func ParseResponse(text string) domain.AIAnalysis {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.AIAnalysis{}
	}

	if analysis, ok := parseJSON(text); ok {
		return analysis
	}
	if analysis, ok := parseHeuristic(text); ok {
		return analysis
	}
	return domain.AIAnalysis{Summary: text}
}

func parseJSON(text string) (domain.AIAnalysis, bool) {
	candidate := extractJSON(text)
	if candidate == "" {
		return domain.AIAnalysis{}, false
	}

	var resp jsonResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return domain.AIAnalysis{}, false
	}
	if resp.Summary == "" && len(resp.Suggestions) == 0 {
		return domain.AIAnalysis{}, false
	}

	analysis := domain.AIAnalysis{Summary: strings.TrimSpace(resp.Summary)}
	for _, s := range resp.Suggestions {
		body := s.Body
		if body == "" {
			body = s.Description
		}
		title := strings.TrimSpace(s.Title)
		if title == "" && body == "" {
			continue
		}
		if title == "" {
			title = firstSentence(body)
		}
		analysis.Suggestions = append(analysis.Suggestions, domain.AISuggestion{
			Title:    title,
			Body:     strings.TrimSpace(body),
			FilePath: s.FilePath,
			Line:     s.Line,
			Category: strings.ToLower(strings.TrimSpace(s.Category)),
		})
	}
	return analysis, true
}

// extractJSON pulls the JSON object out of the response, stripping an
// optional markdown code fence around it.
func extractJSON(text string) string {
	if fence := strings.Index(text, "```"); fence >= 0 {
		rest := text[fence+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// parseHeuristic recovers a summary and bulleted suggestions from prose.
// A line of the form "- title", "* title", or "1. title" starts a
// suggestion; following non-bullet lines become its body.
func parseHeuristic(text string) (domain.AIAnalysis, bool) {
	var (
		analysis domain.AIAnalysis
		summary  []string
		current  *domain.AISuggestion
		inSummary bool
	)

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(current.Body)
			analysis.Suggestions = append(analysis.Suggestions, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if title, ok := bulletTitle(line); ok {
			flush()
			inSummary = false
			current = &domain.AISuggestion{Title: title}
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case current != nil:
			if current.Body != "" {
				current.Body += " "
			}
			current.Body += line
		case strings.Contains(lower, "summary"):
			inSummary = true
		case strings.Contains(lower, "suggestion") || strings.Contains(lower, "issue"):
			inSummary = false
		case inSummary || len(analysis.Suggestions) == 0:
			summary = append(summary, line)
		}
	}
	flush()

	analysis.Summary = strings.Join(summary, " ")
	if analysis.Summary == "" && len(analysis.Suggestions) == 0 {
		return domain.AIAnalysis{}, false
	}
	// Prose with no structure at all is handled by the raw fallback.
	if len(analysis.Suggestions) == 0 && !strings.Contains(strings.ToLower(text), "summary") {
		return domain.AIAnalysis{}, false
	}
	return analysis, true
}

func bulletTitle(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if i > 0 && (r == '.' || r == ')') {
			return strings.TrimSpace(line[i+1:]), true
		}
		break
	}
	return "", false
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		return s[:i]
	}
	return s
}
