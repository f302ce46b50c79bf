package repomap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitter_Fit_ExcludesChatFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc Foo() {}\n"), 0o644))

	renderer := NewRenderer()
	fitter := NewFitter(renderer, func(s string) int { return len(s) })

	ranked := []RankedTag{
		{Tag: Tag{RelPath: "a.go", AbsPath: path, Line: 2, Name: "Foo", Kind: KindDef}, Score: 1},
	}

	result := fitter.Fit(ranked, []string{path}, dir, 10000)
	assert.Empty(t, result.Selected)
	assert.Equal(t, "", result.Rendered)
}

func TestFitter_Fit_ZeroBudgetReturnsEmpty(t *testing.T) {
	renderer := NewRenderer()
	fitter := NewFitter(renderer, func(s string) int { return len(s) })

	result := fitter.Fit([]RankedTag{{Tag: Tag{RelPath: "a.go"}, Score: 1}}, nil, "", 0)
	assert.Empty(t, result.Selected)
}

func TestFitter_Fit_RespectsBudget(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.go")
	pathB := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(pathA, []byte("package a\n\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("package a\n\nfunc Bar() {}\n"), 0o644))

	renderer := NewRenderer()
	counter := func(s string) int { return len(s) }
	fitter := NewFitter(renderer, counter)

	ranked := []RankedTag{
		{Tag: Tag{RelPath: "a.go", AbsPath: pathA, Line: 2, Name: "Foo", Kind: KindDef}, Score: 2},
		{Tag: Tag{RelPath: "b.go", AbsPath: pathB, Line: 2, Name: "Bar", Kind: KindDef}, Score: 1},
	}

	budget := counter(renderer.Render([]Tag{ranked[0].Tag}))
	result := fitter.Fit(ranked, nil, dir, budget)

	require.NotEmpty(t, result.Selected)
	assert.LessOrEqual(t, result.Tokens, budget)
}
