package analysis

import (
	"path/filepath"
	"sort"
	"strings"
)

// extLanguages maps file extensions to the language key used in the
// static_analysis.tools configuration table.
var extLanguages = map[string]string{
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// LanguageFor returns the analysis language for a path, or "" when the
// extension is not recognized.
func LanguageFor(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// GroupByLanguage buckets changed paths by language, dropping files no tool
// covers. Languages and paths within each bucket come back sorted so a run
// over the same change set always schedules tools in the same order.
func GroupByLanguage(paths []string) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range paths {
		lang := LanguageFor(p)
		if lang == "" {
			continue
		}
		groups[lang] = append(groups[lang], p)
	}
	for _, files := range groups {
		sort.Strings(files)
	}
	return groups
}

// Languages returns the sorted language keys of a grouping.
func Languages(groups map[string][]string) []string {
	langs := make([]string, 0, len(groups))
	for lang := range groups {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
