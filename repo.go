package repomap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ListFiles gathers every non-ignored file under path (or path itself, if
// it names a single file) and returns both the flat file list and a
// box-drawing tree rendering of the directory structure — supplemented
// from the teacher's GetRepoFiles/buildTree, kept since spec.md's
// Non-goals never exclude repo-file discovery. Ignore patterns are matched
// against each entry's path relative to path.
func ListFiles(path string, ignore *IgnoreSet) ([]string, string) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ""
	}

	if !info.IsDir() {
		return []string{path}, fmt.Sprintf("└── %s\n", filepath.Base(path))
	}

	tree, files := buildTree(path, path, "", ignore)
	return files, tree
}

func buildTree(base, path, prefix string, ignore *IgnoreSet) (string, []string) {
	var tree strings.Builder
	var files []string

	entries, err := os.ReadDir(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("unable to read directory")
		return "", nil
	}

	filtered := make([]os.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if ignore != nil {
			rel, err := filepath.Rel(base, filepath.Join(path, entry.Name()))
			if err != nil {
				rel = entry.Name()
			}
			if ignore.Match(rel, entry.IsDir()) {
				continue
			}
		}
		filtered = append(filtered, entry)
	}

	for i, entry := range filtered {
		connector := "├──"
		subPrefix := prefix + "│   "
		if i == len(filtered)-1 {
			connector = "└──"
			subPrefix = prefix + "    "
		}

		tree.WriteString(fmt.Sprintf("%s%s %s\n", prefix, connector, entry.Name()))
		full := filepath.Join(path, entry.Name())

		if entry.IsDir() {
			subtree, subFiles := buildTree(base, full, subPrefix, ignore)
			tree.WriteString(subtree)
			files = append(files, subFiles...)
		} else {
			files = append(files, full)
		}
	}

	return tree.String(), files
}

// FindGitRoot walks upward from start until it finds a directory
// containing a .git entry.
func FindGitRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("could not get absolute path of %q: %w", start, err)
	}

	for {
		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil && info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", fmt.Errorf("no .git folder found starting from %q and up", start)
}
