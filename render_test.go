package repomap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render_EmptyInput(t *testing.T) {
	r := NewRenderer()
	assert.Equal(t, "", r.Render(nil))
}

func TestRenderer_Render_GroupsByFileAndShowsElision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "")
	}
	lines[1] = "func First() {}"
	lines[25] = "func Last() {}"
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	r := NewRenderer()
	tags := []Tag{
		{RelPath: "a.go", AbsPath: path, Line: 1, Name: "First", Kind: KindDef},
		{RelPath: "a.go", AbsPath: path, Line: 25, Name: "Last", Kind: KindDef},
	}

	out := r.Render(tags)
	assert.Contains(t, out, "a.go:")
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "Last")
	assert.Contains(t, out, elisionMarker)
}

func TestInterestRanges_MergesOverlapping(t *testing.T) {
	tags := []Tag{
		{Line: 5},
		{Line: 6},
	}
	ranges := interestRanges(tags, 100)
	require.Len(t, ranges, 1)
	assert.Equal(t, 3, ranges[0][0])
	assert.Equal(t, 8, ranges[0][1])
}

func TestInterestRanges_ClampsToFileBounds(t *testing.T) {
	tags := []Tag{{Line: 0}}
	ranges := interestRanges(tags, 10)
	require.Len(t, ranges, 1)
	assert.Equal(t, 0, ranges[0][0])
}
