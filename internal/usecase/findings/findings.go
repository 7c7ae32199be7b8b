// Package findings filters, deduplicates, and orders normalized analysis
// findings before they reach the synthesizer and the comment renderer.
package findings

import (
	"sort"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Process collapses duplicate findings, drops everything below the severity
// threshold, and returns the survivors in rendering order. The input order
// is the tool execution order and decides ties.
func Process(in []domain.Finding, threshold domain.Severity) []domain.Finding {
	out := Dedup(in)
	out = Filter(out, threshold)
	Sort(out)
	return out
}

// Dedup collapses findings that share a file, line, and rule. The highest
// severity wins; on equal severity the earliest reported finding is kept.
func Dedup(in []domain.Finding) []domain.Finding {
	index := make(map[domain.Key]int, len(in))
	out := make([]domain.Finding, 0, len(in))
	for _, f := range in {
		key := f.DedupKey()
		if i, seen := index[key]; seen {
			if f.Severity > out[i].Severity {
				out[i] = f
			}
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}

// Filter keeps findings at or above the threshold.
func Filter(in []domain.Finding, threshold domain.Severity) []domain.Finding {
	out := make([]domain.Finding, 0, len(in))
	for _, f := range in {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// Sort orders findings by file path, then line, preserving the incoming
// order of same-position ties.
func Sort(findings []domain.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Line < b.Line
	})
}

// CountBySeverity tallies findings per severity level.
func CountBySeverity(findings []domain.Finding) map[domain.Severity]int {
	counts := make(map[domain.Severity]int, 3)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// GroupByTool buckets findings by the tool that produced them, keeping the
// incoming order within each bucket.
func GroupByTool(findings []domain.Finding) map[domain.Tool][]domain.Finding {
	groups := make(map[domain.Tool][]domain.Finding)
	for _, f := range findings {
		groups[f.Tool] = append(groups[f.Tool], f)
	}
	return groups
}
