package repomap

import (
	"path/filepath"
	"strings"
)

// Language names the tree-sitter grammar to load for a file. Selection by
// file extension is an out-of-scope heuristic (the core ranked-map pipeline
// only needs a result); a caller embedding this library is free to supply a
// smarter classifier ahead of TagExtractor.
type Language string

// Supported languages, matching the grammar packages pulled into go.mod.
const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangRust       Language = "rust"
	LangBash       Language = "bash"
	LangCSS        Language = "css"
	LangHTML       Language = "html"
)

var extByLanguage = map[string]Language{
	".go":     LangGo,
	".py":     LangPython,
	".pyw":    LangPython,
	".js":     LangJavaScript,
	".jsx":    LangJavaScript,
	".mjs":    LangJavaScript,
	".cjs":    LangJavaScript,
	".ts":     LangTypeScript,
	".tsx":    LangTypeScript,
	".java":   LangJava,
	".cs":     LangCSharp,
	".rs":     LangRust,
	".sh":     LangBash,
	".bash":   LangBash,
	".css":    LangCSS,
	".html":   LangHTML,
	".htm":    LangHTML,
}

// ErrUnsupportedLanguage is returned when a file's extension has no known
// grammar mapping.
var ErrUnsupportedLanguage = newSentinelError("unsupported language")

// languageFromFileName maps a file name to a Language by its extension.
func languageFromFileName(name string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(name))
	lang, ok := extByLanguage[ext]
	if !ok {
		return "", ErrUnsupportedLanguage
	}
	return lang, nil
}
