package repomap

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// interestPadding is the number of lines of context shown before and after
// each selected tag's own line (spec.md §4.6 step 3).
const interestPadding = 2

// elisionMarker separates non-contiguous ranges within a file's snippet.
const elisionMarker = "⋮..."

// maxLineWidth truncates absurdly long (e.g. minified) source lines before
// they reach the rendered map.
const maxLineWidth = 100

// Renderer formats a set of selected definition tags into the final map
// text: grouped by file, with a small context window around each
// definition and elision markers between non-contiguous ranges
// (spec.md §4.6). It is deterministic: identical input produces identical
// output bytes.
type Renderer struct{}

// NewRenderer returns a ready-to-use Renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render implements spec.md §4.6. Only def tags should be passed in —
// the fitter and ranker never surface ref tags, so this has no
// kind filter of its own.
func (r *Renderer) Render(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}

	order, byFile := groupByFirstAppearance(tags)

	var out strings.Builder
	for i, file := range order {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(file)
		out.WriteString(":\n")

		snippet, err := r.renderFile(file, byFile[file])
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("failed to render file snippet")
			continue
		}
		out.WriteString(snippet)
	}

	lines := strings.Split(out.String(), "\n")
	for i, ln := range lines {
		if len(ln) > maxLineWidth {
			lines[i] = ln[:maxLineWidth]
		}
	}

	return strings.Join(lines, "\n")
}

// groupByFirstAppearance partitions tags by RelPath, preserving the order
// in which each file's group first appears in the input (spec.md §4.6 step 1).
func groupByFirstAppearance(tags []Tag) (order []string, byFile map[string][]Tag) {
	byFile = make(map[string][]Tag)
	seen := make(map[string]struct{})

	for _, t := range tags {
		if _, ok := seen[t.RelPath]; !ok {
			seen[t.RelPath] = struct{}{}
			order = append(order, t.RelPath)
		}
		byFile[t.RelPath] = append(byFile[t.RelPath], t)
	}

	return order, byFile
}

// renderFile emits the context windows for a single file's tags.
func (r *Renderer) renderFile(relPath string, tags []Tag) (string, error) {
	absPath := tags[0].AbsPath
	source, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", absPath, err)
	}

	lines := strings.Split(string(source), "\n")
	lastLine := len(lines) - 1

	ranges := interestRanges(tags, lastLine)

	width := len(fmt.Sprintf("%d", maxEmittedLine(ranges)+1))

	var out strings.Builder
	for i, rg := range ranges {
		if i > 0 {
			out.WriteString(fmt.Sprintf("%s\n", elisionMarker))
		}
		for ln := rg[0]; ln <= rg[1]; ln++ {
			if ln < 0 || ln > lastLine {
				continue
			}
			out.WriteString(fmt.Sprintf("%*d: %s\n", width, ln+1, lines[ln]))
		}
	}

	return out.String(), nil
}

// interestRanges computes each tag's [line-2, line+2] window (clamped to
// file bounds) and unions them into maximal contiguous ranges
// (spec.md §4.6 steps 3-4), sorted ascending.
func interestRanges(tags []Tag, lastLine int) [][2]int {
	var windows [][2]int
	for _, t := range tags {
		lo := t.Line - interestPadding
		if lo < 0 {
			lo = 0
		}
		hi := t.Line + interestPadding
		if hi > lastLine {
			hi = lastLine
		}
		windows = append(windows, [2]int{lo, hi})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i][0] < windows[j][0] })

	var merged [][2]int
	for _, w := range windows {
		if len(merged) == 0 {
			merged = append(merged, w)
			continue
		}
		last := &merged[len(merged)-1]
		if w[0] <= last[1]+1 {
			if w[1] > last[1] {
				last[1] = w[1]
			}
			continue
		}
		merged = append(merged, w)
	}

	return merged
}

func maxEmittedLine(ranges [][2]int) int {
	max := 0
	for _, rg := range ranges {
		if rg[1] > max {
			max = rg[1]
		}
	}
	return max
}
