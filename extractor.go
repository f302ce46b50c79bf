package repomap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	perrors "github.com/pkg/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/rs/zerolog/log"

	"github.com/cyber-nic/repomap/scm"
)

var scmByLanguage = map[Language]scm.Language{
	LangGo:         scm.Go,
	LangPython:     scm.Python,
	LangJavaScript: scm.JavaScript,
	LangTypeScript: scm.TypeScript,
	LangJava:       scm.Java,
	LangCSharp:     scm.CSharp,
	LangRust:       scm.Rust,
	LangBash:       scm.Bash,
	LangCSS:        scm.CSS,
	LangHTML:       scm.HTML,
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return sitter.NewLanguage(sitter_go.Language()), nil
	case LangPython:
		return sitter.NewLanguage(sitter_python.Language()), nil
	case LangJavaScript:
		return sitter.NewLanguage(sitter_javascript.Language()), nil
	case LangTypeScript:
		return sitter.NewLanguage(sitter_typescript.LanguageTypescript()), nil
	case LangJava:
		return sitter.NewLanguage(sitter_java.Language()), nil
	case LangCSharp:
		return sitter.NewLanguage(sitter_csharp.Language()), nil
	case LangRust:
		return sitter.NewLanguage(sitter_rust.Language()), nil
	case LangBash:
		return sitter.NewLanguage(sitter_bash.Language()), nil
	case LangCSS:
		return sitter.NewLanguage(sitter_css.Language()), nil
	case LangHTML:
		return sitter.NewLanguage(sitter_html.Language()), nil
	default:
		return nil, ErrNoGrammar
	}
}

// TagFilter accepts the text of a captured identifier and returns false if
// the tag should be dropped (short names, boilerplate words, etc).
type TagFilter func(name string) bool

// Extractor parses one source file per call with a language-specific
// tree-sitter query and emits the Tag records it captures. It is stateless;
// callers wanting persistence should route calls through a TagCache.
type Extractor struct {
	// queryCache avoids recompiling the same language's query on every file.
	queryCache map[Language]*sitter.Query
	languages  map[Language]*sitter.Language
}

// NewExtractor builds a ready-to-use Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		queryCache: make(map[Language]*sitter.Query),
		languages:  make(map[Language]*sitter.Language),
	}
}

func (e *Extractor) language(lang Language) (*sitter.Language, error) {
	if l, ok := e.languages[lang]; ok {
		return l, nil
	}
	l, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}
	e.languages[lang] = l
	return l, nil
}

func (e *Extractor) query(lang Language, ts *sitter.Language) (*sitter.Query, error) {
	if q, ok := e.queryCache[lang]; ok {
		return q, nil
	}

	scmLang, ok := scmByLanguage[lang]
	if !ok {
		return nil, ErrNoGrammar
	}

	src, err := scm.Query(scmLang)
	if err != nil {
		return nil, perrors.Wrap(err, "load tag query")
	}

	q, err := sitter.NewQuery(ts, src)
	if err != nil {
		var qErr *sitter.QueryError
		if errors.As(err, &qErr) && qErr != nil {
			return nil, fmt.Errorf("query error: %s at row %d col %d: %v", qErr.Message, qErr.Row, qErr.Column, qErr.Kind)
		}
		return nil, fmt.Errorf("failed to compile query for %s: %w", lang, err)
	}

	e.queryCache[lang] = q
	return q, nil
}

// Extract parses absPath and returns the tags captured by lang's tag query.
// On any grammar-unavailable condition it returns ErrNoGrammar so the
// caller can record a FileReport exclusion; parse errors degrade
// gracefully — whatever was captured before the error is still returned.
func (e *Extractor) Extract(absPath, relPath string, lang Language, filter TagFilter) ([]Tag, error) {
	ts, err := e.language(lang)
	if err != nil {
		return nil, ErrNoGrammar
	}

	q, err := e.query(lang, ts)
	if err != nil {
		return nil, ErrNoGrammar
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", absPath, err)
	}
	if len(source) == 0 {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ts)

	tree := parser.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		log.Warn().Str("file", absPath).Msg("parse produced no tree; residual error not reported as fatal")
		return nil, nil
	}
	defer tree.Close()

	tags := captureTags(relPath, absPath, q, tree, source, filter)

	if !hasReferenceCaptures(q) {
		tags = append(tags, lexicalFallbackRefs(relPath, absPath, source, tags)...)
	}

	return tags, nil
}

// hasReferenceCaptures reports whether q defines any name.reference.* /
// reference.* capture, per spec.md's "pygments-style lexical fallback" rule.
func hasReferenceCaptures(q *sitter.Query) bool {
	for _, name := range q.CaptureNames() {
		if strings.HasPrefix(name, "name.reference.") || strings.HasPrefix(name, "reference.") {
			return true
		}
	}
	return false
}

// captureTags walks every capture in the parse and classifies it as a
// definition or reference tag based on its capture-name prefix. Captures
// that match neither prefix are ignored.
func captureTags(relFname, fname string, q *sitter.Query, tree *sitter.Tree, source []byte, filter TagFilter) []Tag {
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	captures := qc.Captures(q, tree.RootNode(), source)

	var tags []Tag
	for match, index := captures.Next(); match != nil; match, index = captures.Next() {
		c := match.Captures[index]
		capName := q.CaptureNames()[c.Index]

		row := int(c.Node.StartPosition().Row)
		name := string(c.Node.Utf8Text(source))

		if filter != nil && !filter(name) {
			continue
		}

		switch {
		case strings.HasPrefix(capName, "name.definition."):
			tags = append(tags, Tag{RelPath: relFname, AbsPath: fname, Line: row, Name: name, Kind: KindDef})
		case strings.HasPrefix(capName, "name.reference."):
			tags = append(tags, Tag{RelPath: relFname, AbsPath: fname, Line: row, Name: name, Kind: KindRef})
		}
	}

	return tags
}
