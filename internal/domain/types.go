package domain

// FileStatus is the change kind reported for a file in a diff, matching the
// status values of the GitHub changed-files API.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
)

// Tool names a static-analysis tool. New tools register a parser in the
// analysis package; these constants only exist for the built-in set.
type Tool string

const (
	ToolPylint Tool = "pylint"
	ToolFlake8 Tool = "flake8"
	ToolESLint Tool = "eslint"
)

// Diff is the ordered set of changed files in a pull request.
type Diff struct {
	Files []FileDiff
}

// FileDiff captures the change for a single file.
type FileDiff struct {
	Path      string
	Status    FileStatus
	Patch     string
	Additions int
	Deletions int
}

// ChangedPaths returns the paths of all non-deleted files, in diff order.
func (d Diff) ChangedPaths() []string {
	paths := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		if f.Status == FileRemoved {
			continue
		}
		paths = append(paths, f.Path)
	}
	return paths
}

// Finding is one normalized static-analysis observation.
type Finding struct {
	Tool     Tool     `json:"tool"`
	FilePath string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	RuleID   string   `json:"ruleId,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Key identifies a finding location for deduplication purposes.
type Key struct {
	FilePath string
	Line     int
	RuleID   string
}

// DedupKey returns the (file, line, rule) identity of the finding.
func (f Finding) DedupKey() Key {
	return Key{FilePath: f.FilePath, Line: f.Line, RuleID: f.RuleID}
}

// AISuggestion is a model-proposed improvement. Not guaranteed accurate;
// rendered as advisory.
type AISuggestion struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	FilePath string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Category string `json:"category,omitempty"`
}

// AIAnalysis is the parsed output of one model invocation.
type AIAnalysis struct {
	Summary     string
	Suggestions []AISuggestion
}

// ToolOutput is the raw output of one tool invocation, tagged with the tool
// that produced it and the language it ran against.
type ToolOutput struct {
	Tool     Tool
	Language string
	Raw      []byte
}

// ReviewContext is the immutable per-run bundle handed through the pipeline.
// It is created once per invocation by the orchestrator and read-only after.
type ReviewContext struct {
	Repository string
	PRNumber   int
	Title      string
	HeadSHA    string
	Diff       Diff
	Outputs    []ToolOutput
}

// ReviewResult is the aggregate output the renderer consumes. Assembled once,
// rendered once, then discarded.
type ReviewResult struct {
	Summary     string
	Suggestions []AISuggestion
	Findings    []Finding
	Partial     bool
	Degraded    []string
}
