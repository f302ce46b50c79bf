package repomap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// printStruct prints a struct as indented JSON, used by verbose reporting.
func printStruct(w io.Writer, t interface{}) {
	j, _ := json.MarshalIndent(t, "", "  ")
	fmt.Fprintln(w, string(j))
}

// printReport renders a FileReport to stderr in verbose mode, coloring the
// exclusion count when nonzero so it stands out in a terminal.
func printReport(report *FileReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "files considered: %d\n", report.TotalFilesConsidered)
	fmt.Fprintf(os.Stderr, "definitions: %d  references: %d\n", report.DefinitionMatches, report.ReferenceMatches)
	if len(report.Excluded) > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "excluded: %d\n", len(report.Excluded))
	}
	if report.RankFallback {
		color.New(color.FgRed).Fprintln(os.Stderr, "pagerank fell back to uniform ranks")
	}
	printStruct(os.Stderr, report)
}

// uniqueElements flattens and deduplicates one or more string slices while
// preserving first-seen order.
func uniqueElements(slices ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, s := range slices {
		for _, v := range s {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}
