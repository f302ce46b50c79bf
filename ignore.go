package repomap

import (
	_ "embed"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

//go:embed .astignore
var defaultIgnorePatterns string

// ignoreRule is one compiled line of a gitignore-style pattern file.
type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// IgnoreSet matches relative paths against a list of gitignore-style
// patterns using doublestar glob semantics (spec.md doesn't name this
// component directly; it backs the "important filename"-adjacent
// directory walk spec.md §7 "Input errors" describes as
// candidate-file scoping).
type IgnoreSet struct {
	rules []ignoreRule
}

// NewIgnoreSet compiles a newline-separated pattern list into an IgnoreSet.
func NewIgnoreSet(lines string) *IgnoreSet {
	set := &IgnoreSet{}
	for _, raw := range strings.Split(lines, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			rule.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if !strings.Contains(line, "/") && !rule.anchored {
			// Bare patterns (no slash) match at any depth, gitignore-style.
			line = "**/" + line
		}

		rule.pattern = line
		set.rules = append(set.rules, rule)
	}
	return set
}

// DefaultIgnoreSet compiles the embedded .astignore pattern list.
func DefaultIgnoreSet() *IgnoreSet {
	return NewIgnoreSet(defaultIgnorePatterns)
}

// Match reports whether relPath (using forward slashes, relative to the
// repo root) should be excluded. Later rules override earlier ones, and a
// rule prefixed with "!" re-includes a path an earlier rule excluded,
// matching gitignore precedence.
func (s *IgnoreSet) Match(relPath string, isDir bool) bool {
	clean := filepath.ToSlash(relPath)

	matched := false
	for _, r := range s.rules {
		if r.dirOnly && !isDir {
			// A dir-only pattern can still match a path under that
			// directory; doublestar handles that via the "/**" suffix below.
		}

		pattern := r.pattern
		if r.dirOnly {
			pattern = pattern + "/**"
		}

		ok, _ := doublestar.Match(pattern, clean)
		if !ok {
			ok, _ = doublestar.Match(r.pattern, clean)
		}
		if ok {
			matched = !r.negate
		}
	}
	return matched
}
