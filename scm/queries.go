// Package scm embeds the per-language tree-sitter tag queries consumed by
// the TagExtractor. Each query file captures @definition.* and
// @reference.* nodes; files shipping only @definition.* captures rely on
// the extractor's lexical fallback for references.
package scm

import (
	"embed"
	"fmt"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language names a tag-query file, independent of any grammar-loading type
// in the consuming package.
type Language string

// Languages with an embedded tag query.
const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	CSharp     Language = "csharp"
	Rust       Language = "rust"
	Bash       Language = "bash"
	CSS        Language = "css"
	HTML       Language = "html"
)

// fileNames maps each supported language to the name of its embedded query
// file, mirroring the "queries/tree-sitter-<lang>-tags.scm" convention.
var fileNames = map[Language]string{
	Go:         "tree-sitter-go-tags.scm",
	Python:     "tree-sitter-python-tags.scm",
	JavaScript: "tree-sitter-javascript-tags.scm",
	TypeScript: "tree-sitter-typescript-tags.scm",
	Java:       "tree-sitter-java-tags.scm",
	CSharp:     "tree-sitter-c-sharp-tags.scm",
	Rust:       "tree-sitter-rust-tags.scm",
	Bash:       "tree-sitter-bash-tags.scm",
	CSS:        "tree-sitter-css-tags.scm",
	HTML:       "tree-sitter-html-tags.scm",
}

// Query returns the tag query source for the given language.
func Query(language Language) (string, error) {
	name, ok := fileNames[language]
	if !ok {
		return "", fmt.Errorf("no tag query registered for language %q", language)
	}

	data, err := queryFS.ReadFile("queries/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded query for %q: %w", language, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty query file for language %q", language)
	}

	return string(data), nil
}
