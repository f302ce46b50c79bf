package repomap

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
)

// mentionedIdentMultiplier and trivialIdentMultiplier implement the edge
// weight adjustments from spec.md §4.3.
const (
	mentionedIdentMultiplier = 10.0
	classLikeMultiplier      = 10.0
	trivialIdentMultiplier   = 0.1
	trivialIdentMaxLen       = 2
)

type tagKey struct {
	file   string
	symbol string
}

// ReferenceGraph is a directed multigraph over files, built from shared
// identifiers (spec.md §3 "ReferenceGraph").
type ReferenceGraph struct {
	g          *multi.WeightedDirectedGraph
	nodeByFile map[string]graph.Node
	fileByNode map[int64]string

	// defines/references/identifiers/definitions are the per-identifier
	// indices used to build g and, in the Ranker, to distribute rank back
	// onto individual definitions (spec.md §4.4 step 2) — the per-file
	// Ranker power iteration itself reads edges exclusively off g.
	defines     map[string]map[string]struct{} // ident -> set of defining files
	references  map[string][]string            // ident -> list of referencing files (one entry per occurrence)
	identifiers map[string]struct{}             // idents with both a def and a ref
	definitions map[tagKey][]Tag                // (file, ident) -> def tags

	// Personalization is the normalized per-node bias vector (spec.md §4.3 step 5).
	Personalization map[string]float64

	Files []string // every node's file path, stable-sorted
}

// Nodes returns the number of files participating in the graph.
func (g *ReferenceGraph) Nodes() int {
	if g.g == nil {
		return 0
	}
	return g.g.Nodes().Len()
}

// GraphBuilder aggregates tags from candidate files into a ReferenceGraph.
type GraphBuilder struct {
	extractor *Extractor
	cache     *TagCache
}

// NewGraphBuilder builds a GraphBuilder backed by the given extractor and
// tag cache.
func NewGraphBuilder(extractor *Extractor, cache *TagCache) *GraphBuilder {
	return &GraphBuilder{extractor: extractor, cache: cache}
}

// Build implements spec.md §4.3: collect tags, partition into def/ref
// indices, and assemble the weighted reference multigraph plus a
// personalization vector and FileReport.
func (b *GraphBuilder) Build(
	chatFiles, otherFiles []string,
	mentionedFnames, mentionedIdents map[string]bool,
	root string,
	forceRefresh bool,
) (*ReferenceGraph, *FileReport) {
	report := newFileReport()

	allFiles := uniqueElements(chatFiles, otherFiles)
	report.TotalFilesConsidered = len(allFiles)

	allTags := b.collectTags(allFiles, root, forceRefresh, report)

	defines, references, definitions, identifiers := buildReferenceMaps(allTags, root)

	rg := &ReferenceGraph{
		defines:     defines,
		references:  references,
		identifiers: identifiers,
		definitions: definitions,
	}

	rg.g, rg.nodeByFile, rg.fileByNode, rg.Files = buildFileGraph(defines, references, identifiers, mentionedIdents)
	rg.Personalization = personalizationVector(rg.Files, chatFiles, mentionedFnames, root)

	return rg, report
}

// collectTags extracts (via the TagCache) the tags for every candidate
// file, recording exclusions into report.
func (b *GraphBuilder) collectTags(files []string, root string, forceRefresh bool, report *FileReport) []Tag {
	var all []Tag

	for _, fname := range files {
		info, err := os.Stat(fname)
		if err != nil {
			report.exclude(fname, "unreadable")
			continue
		}

		lang, err := languageFromFileName(fname)
		if err != nil {
			report.exclude(fname, "no-grammar")
			continue
		}

		rel := relFname(root, fname)
		mtime := info.ModTime().UnixNano()

		filter := func(name string) bool {
			if len(name) <= trivialIdentMaxLen {
				return false
			}
			return !isCommonWord(name)
		}

		tags, err := b.cache.GetOrCompute(fname, mtime, forceRefresh, func() ([]Tag, error) {
			return b.extractor.Extract(fname, rel, lang, filter)
		})
		if err != nil {
			if err == ErrNoGrammar {
				report.exclude(fname, "no-grammar")
			} else {
				log.Warn().Err(err).Str("file", fname).Msg("failed to extract tags")
				report.exclude(fname, "unreadable")
			}
			continue
		}

		report.addTags(tags)
		all = append(all, tags...)
	}

	return all
}

func relFname(root, fname string) string {
	rel, err := filepath.Rel(root, fname)
	if err != nil {
		return fname
	}
	return rel
}

// buildReferenceMaps partitions tags into (ident -> defining files),
// (ident -> referencing files) and (file, ident) -> def tags, per
// spec.md §4.3 step 2-3.
func buildReferenceMaps(allTags []Tag, root string) (
	defines map[string]map[string]struct{},
	references map[string][]string,
	definitions map[tagKey][]Tag,
	identifiers map[string]struct{},
) {
	defines = make(map[string]map[string]struct{})
	references = make(map[string][]string)
	definitions = make(map[tagKey][]Tag)

	for _, t := range allTags {
		switch t.Kind {
		case KindDef:
			if defines[t.Name] == nil {
				defines[t.Name] = make(map[string]struct{})
			}
			defines[t.Name][t.RelPath] = struct{}{}

			k := tagKey{file: t.RelPath, symbol: t.Name}
			definitions[k] = append(definitions[k], t)

		case KindRef:
			references[t.Name] = append(references[t.Name], t.RelPath)
		}
	}

	// Discard identifiers with zero definitions (pure external refs); dead
	// defs (zero refs) keep their tags available but create no edges and
	// are dropped from the identifiers set used to build the graph.
	identifiers = make(map[string]struct{})
	for sym := range defines {
		if _, ok := references[sym]; ok {
			identifiers[sym] = struct{}{}
		}
	}

	return defines, references, definitions, identifiers
}

// edgeWeight implements spec.md §4.3 step 4's weight formula: base weight
// sqrt(occurrenceCount), occurrenceCount being how many times ident is
// referenced in the single referencing file the edge originates from.
func edgeWeight(ident string, occurrenceCount int, mentionedIdents map[string]bool) float64 {
	w := math.Sqrt(float64(occurrenceCount))

	if mentionedIdents[ident] {
		w *= mentionedIdentMultiplier
	}
	if isClassLike(ident) {
		w *= classLikeMultiplier
	}
	if isTrivial(ident) {
		w *= trivialIdentMultiplier
	}

	return w
}

func isClassLike(ident string) bool {
	if ident == "" {
		return false
	}
	c := ident[0]
	return c >= 'A' && c <= 'Z'
}

func isTrivial(ident string) bool {
	return len(ident) <= 2 || strings.HasPrefix(ident, "_")
}

// buildFileGraph constructs the weighted directed multigraph described in
// spec.md §3/§4.3: one node per file that defines or references at least
// one identifier, one edge R -> D per (identifier, referencing file,
// defining file) triple with R != D, weighted by how many times that
// identifier occurs in R specifically (spec.md §4.3 step 4).
func buildFileGraph(
	defines map[string]map[string]struct{},
	references map[string][]string,
	identifiers map[string]struct{},
	mentionedIdents map[string]bool,
) (g *multi.WeightedDirectedGraph, nodeByFile map[string]graph.Node, fileByNode map[int64]string, files []string) {
	g = multi.NewWeightedDirectedGraph()
	nodeByFile = make(map[string]graph.Node)
	fileByNode = make(map[int64]string)

	fileSet := make(map[string]struct{})
	for _, defFiles := range defines {
		for f := range defFiles {
			fileSet[f] = struct{}{}
		}
	}
	for _, refFiles := range references {
		for _, f := range refFiles {
			fileSet[f] = struct{}{}
		}
	}

	files = sortedKeys(fileSet)
	for _, f := range files {
		n := g.NewNode()
		g.AddNode(n)
		nodeByFile[f] = n
		fileByNode[n.ID()] = f
	}

	for ident := range identifiers {
		defFiles := defines[ident]
		if len(defFiles) == 0 {
			continue
		}

		// references[ident] holds one entry per occurrence, so grouping by
		// file yields exactly the per-referencing-file occurrence count
		// spec.md §4.3 step 4 weights edges by.
		occurrences := make(map[string]int)
		for _, refFile := range references[ident] {
			occurrences[refFile]++
		}

		for refFile, count := range occurrences {
			w := edgeWeight(ident, count, mentionedIdents)

			for defFile := range defFiles {
				if refFile == defFile {
					continue // no self-edges, spec.md §3
				}
				refNode := nodeByFile[refFile]
				defNode := nodeByFile[defFile]
				line := g.NewWeightedLine(refNode, defNode, w)
				g.SetWeightedLine(line)
			}
		}
	}

	return g, nodeByFile, fileByNode, files
}

// personalizationVector implements spec.md §4.3 step 5: p[f] = 1.0 for
// f in chat_files ∪ mentioned_fnames, else 0, normalized to sum 1 (or
// uniform if the boosted set is empty).
func personalizationVector(files []string, chatFiles []string, mentionedFnames map[string]bool, root string) map[string]float64 {
	boosted := make(map[string]struct{})
	for _, f := range chatFiles {
		boosted[relFname(root, f)] = struct{}{}
	}
	for f, ok := range mentionedFnames {
		if ok {
			boosted[f] = struct{}{}
		}
	}

	p := make(map[string]float64, len(files))

	if len(boosted) == 0 {
		if len(files) == 0 {
			return p
		}
		uniform := 1.0 / float64(len(files))
		for _, f := range files {
			p[f] = uniform
		}
		return p
	}

	var boostedInGraph int
	for _, f := range files {
		if _, ok := boosted[f]; ok {
			boostedInGraph++
		}
	}
	if boostedInGraph == 0 {
		uniform := 1.0 / float64(len(files))
		for _, f := range files {
			p[f] = uniform
		}
		return p
	}

	share := 1.0 / float64(boostedInGraph)
	for _, f := range files {
		if _, ok := boosted[f]; ok {
			p[f] = share
		} else {
			p[f] = 0
		}
	}
	return p
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
