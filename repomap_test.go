package repomap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter is a trivial deterministic TokenCounter used so budget
// assertions don't depend on tiktoken's BPE tables being reachable in tests.
func wordCounter(text string) int {
	return len(strings.Fields(text))
}

func writeGoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleRepo(t *testing.T) (dir string, a, b, c string) {
	t.Helper()
	dir = t.TempDir()

	a = writeGoFile(t, dir, "alpha.go", `package sample

func Helper() int {
	return 1
}
`)

	b = writeGoFile(t, dir, "beta.go", `package sample

func UseHelper() int {
	return Helper() + Helper()
}
`)

	c = writeGoFile(t, dir, "gamma.go", `package sample

func Unrelated() string {
	return "gamma"
}
`)

	return dir, a, b, c
}

func TestGetRepoMap_RanksReferencedDefinitionsHigher(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	res, report := rm.GetRepoMap(Options{
		OtherFiles:   mustListFiles(t, rm, dir),
		TokenCounter: wordCounter,
	})

	require.NotNil(t, res)
	require.NotNil(t, report)
	assert.Greater(t, len(res.Tags), 0)

	// Helper is referenced twice from beta.go; it should outrank Unrelated,
	// which has no incoming references anywhere in the repo.
	var helperIdx, unrelatedIdx = -1, -1
	for i, tag := range res.Tags {
		switch tag.Name {
		case "Helper":
			helperIdx = i
		case "Unrelated":
			unrelatedIdx = i
		}
	}
	require.NotEqual(t, -1, helperIdx, "Helper should be present in ranked output")
	require.NotEqual(t, -1, unrelatedIdx, "Unrelated should be present in ranked output")
	assert.Less(t, helperIdx, unrelatedIdx, "referenced definitions should rank above unreferenced ones")
}

func TestGetRepoMap_Determinism(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	opts := Options{OtherFiles: mustListFiles(t, rm, dir), TokenCounter: wordCounter}

	first, _ := rm.GetRepoMap(opts)
	second, _ := rm.GetRepoMap(opts)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Text, second.Text)
}

func TestGetRepoMap_MonotoneBudget(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(8))
	files := mustListFiles(t, rm, dir)

	small, _ := rm.GetRepoMap(Options{OtherFiles: files, MaxMapTokens: 8, TokenCounter: wordCounter})
	large, _ := rm.GetRepoMap(Options{OtherFiles: files, MaxMapTokens: 512, TokenCounter: wordCounter})

	var smallTags, largeTags int
	if small != nil {
		smallTags = len(small.Tags)
	}
	if large != nil {
		largeTags = len(large.Tags)
	}
	assert.LessOrEqual(t, smallTags, largeTags)
}

func TestGetRepoMap_BudgetRespected(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(6))
	files := mustListFiles(t, rm, dir)

	res, _ := rm.GetRepoMap(Options{OtherFiles: files, MaxMapTokens: 6, TokenCounter: wordCounter})
	if res != nil {
		assert.LessOrEqual(t, res.Tokens, 6)
	}
}

func TestGetRepoMap_ChatFilesNeverRendered(t *testing.T) {
	dir, a, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	files := mustListFiles(t, rm, dir)

	res, _ := rm.GetRepoMap(Options{ChatFiles: []string{a}, OtherFiles: files, TokenCounter: wordCounter})
	require.NotNil(t, res)

	relA := rm.GetRelFname(a)
	for _, tag := range res.Tags {
		assert.NotEqual(t, relA, tag.RelPath, "chat files must never appear in the rendered map")
	}
}

func TestGetRepoMap_OnlyDefinitionsAreRendered(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)

	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	res, _ := rm.GetRepoMap(Options{OtherFiles: mustListFiles(t, rm, dir), TokenCounter: wordCounter})
	require.NotNil(t, res)

	for _, tag := range res.Tags {
		assert.Equal(t, KindDef, tag.Kind)
	}
}

func TestGetRepoMap_EmptyInputYieldsNilResult(t *testing.T) {
	dir := t.TempDir()
	rm := NewRepoMap(dir, WithMaxMapTokens(512))

	res, report := rm.GetRepoMap(Options{TokenCounter: wordCounter})
	assert.Nil(t, res)
	assert.NotNil(t, report)
	assert.Equal(t, 0, report.TotalFilesConsidered)
}

func TestGetRepoMap_ZeroBudgetDisablesMap(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)
	rm := NewRepoMap(dir, WithMaxMapTokens(0))

	res, report := rm.GetRepoMap(Options{OtherFiles: mustListFiles(t, rm, dir), TokenCounter: wordCounter})
	assert.Nil(t, res)
	assert.NotNil(t, report)
}

func TestGetRepoMap_UnreadableFileIsExcludedNotFatal(t *testing.T) {
	dir, a, b, _ := sampleRepo(t)
	missing := filepath.Join(dir, "does-not-exist.go")

	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	res, report := rm.GetRepoMap(Options{OtherFiles: []string{a, b, missing}, TokenCounter: wordCounter})

	require.NotNil(t, res)
	assert.Contains(t, report.Excluded, missing)
}

func TestGetRepoMap_ForceRefreshRecomputesTags(t *testing.T) {
	dir, a, b, _ := sampleRepo(t)
	rm := NewRepoMap(dir, WithMaxMapTokens(512))
	files := []string{a, b}

	first, _ := rm.GetRepoMap(Options{OtherFiles: files, TokenCounter: wordCounter})
	require.NotNil(t, first)

	second, _ := rm.GetRepoMap(Options{OtherFiles: files, ForceRefresh: true, TokenCounter: wordCounter})
	require.NotNil(t, second)
	assert.Equal(t, first.Text, second.Text)
}

func TestRepoMap_ContentPrefixTemplating(t *testing.T) {
	dir, _, _, _ := sampleRepo(t)
	rm := NewRepoMap(dir, WithMaxMapTokens(512), WithContentPrefix("repo map ({other}context):\n"))

	withChat, _ := rm.GetRepoMap(Options{ChatFiles: []string{}, OtherFiles: mustListFiles(t, rm, dir), TokenCounter: wordCounter})
	require.NotNil(t, withChat)
	assert.True(t, strings.HasPrefix(withChat.Text, "repo map (context):\n"))
}

func mustListFiles(t *testing.T, rm *RepoMap, dir string) []string {
	t.Helper()
	files, _ := rm.ListFiles(dir)
	require.NotEmpty(t, files)
	return files
}
