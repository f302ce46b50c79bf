package repomap

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default tuning knobs (spec.md §6 table).
const (
	DefaultMaxMapTokens         = 1024
	DefaultMaxContextWindow     = 16000
	DefaultMaxCtxFileMultiplier = 8
)

// RepoMap is the ranked-map pipeline orchestrator: it wires TagExtractor,
// TagCache, GraphBuilder, Ranker, BudgetFitter and Renderer together behind
// the get_repo_map entry point described in spec.md §6.
type RepoMap struct {
	root string

	cache     *TagCache
	extractor *Extractor
	builder   *GraphBuilder
	ranker    *Ranker
	renderer  *Renderer
	ignore    *IgnoreSet

	verbose              bool
	contentPrefix        string
	maxMapTokens         int
	maxCtxWindow         int
	maxCtxFileMultiplier int
	cacheVersion         int

	mu                  sync.Mutex
	lastMap             string
	totalProcessingTime float64
}

// Option configures a RepoMap at construction time.
type Option func(*RepoMap)

// NewRepoMap constructs a RepoMap rooted at root. If root is empty, the
// current working directory is used.
func NewRepoMap(root string, options ...Option) *RepoMap {
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		}
	}

	rm := &RepoMap{
		root:                 root,
		extractor:            NewExtractor(),
		ranker:               NewRanker(),
		renderer:             NewRenderer(),
		ignore:               DefaultIgnoreSet(),
		maxMapTokens:         DefaultMaxMapTokens,
		maxCtxWindow:         DefaultMaxContextWindow,
		maxCtxFileMultiplier: DefaultMaxCtxFileMultiplier,
		cacheVersion:         DefaultCacheVersion,
	}

	for _, o := range options {
		o(rm)
	}

	rm.cache = NewTagCache(rm.root, rm.cacheVersion)
	rm.builder = NewGraphBuilder(rm.extractor, rm.cache)

	return rm
}

// WithLogLevel sets the global zerolog level.
func WithLogLevel(level zerolog.Level) Option {
	return func(rm *RepoMap) {
		zerolog.SetGlobalLevel(level)
	}
}

// WithVerbose toggles verbose FileReport logging (spec.md §6 "Verbose mode").
func WithVerbose(value bool) Option {
	return func(rm *RepoMap) { rm.verbose = value }
}

// WithGlobIgnoreFile loads ignore patterns from path instead of the
// embedded default. path may be absolute, or relative to the repo's git
// root.
func WithGlobIgnoreFile(path string) Option {
	return func(rm *RepoMap) {
		if data, err := os.ReadFile(path); err == nil {
			rm.ignore = NewIgnoreSet(string(data))
			return
		}

		root, err := FindGitRoot(rm.root)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not resolve ignore file relative to git root")
			return
		}
		full := filepath.Join(root, path)
		data, err := os.ReadFile(full)
		if err != nil {
			log.Warn().Err(err).Str("path", full).Msg("ignore file not found")
			return
		}
		rm.ignore = NewIgnoreSet(string(data))
	}
}

// WithoutGlobIgnore disables ignore filtering entirely.
func WithoutGlobIgnore() Option {
	return func(rm *RepoMap) { rm.ignore = NewIgnoreSet("") }
}

// WithContentPrefix sets a template prepended to the rendered map; the
// literal "{other}" is replaced with "other " when chat files are present,
// else "" (kept from the teacher's content-prefix templating).
func WithContentPrefix(value string) Option {
	return func(rm *RepoMap) { rm.contentPrefix = value }
}

// WithMaxMapTokens sets the default token budget used by GetRepoMap.
func WithMaxMapTokens(value int) Option {
	return func(rm *RepoMap) { rm.maxMapTokens = value }
}

// WithMaxContextWindow sets the hard ceiling map tokens cannot exceed when
// no chat files are pinned.
func WithMaxContextWindow(value int) Option {
	return func(rm *RepoMap) { rm.maxCtxWindow = value }
}

// WithMapMulNoFiles sets the multiplier applied to maxMapTokens when no
// chat files are supplied.
func WithMapMulNoFiles(value int) Option {
	return func(rm *RepoMap) { rm.maxCtxFileMultiplier = value }
}

// WithCacheVersion overrides the on-disk tag cache's format version.
func WithCacheVersion(value int) Option {
	return func(rm *RepoMap) { rm.cacheVersion = value }
}

// GetRelFname returns fname relative to the RepoMap's root.
func (r *RepoMap) GetRelFname(fname string) string {
	return relFname(r.root, fname)
}

// LastMap returns the most recently rendered map.
func (r *RepoMap) LastMap() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMap
}

// ListFiles gathers every non-ignored file under path, honoring this
// RepoMap's configured ignore patterns.
func (r *RepoMap) ListFiles(path string) ([]string, string) {
	return ListFiles(path, r.ignore)
}

// Options parameterize a single GetRepoMap call (spec.md §6's get_repo_map
// option table).
type Options struct {
	ChatFiles       []string
	OtherFiles      []string
	MentionedFnames map[string]bool
	MentionedIdents map[string]bool
	ForceRefresh    bool
	MaxMapTokens    int // 0 = use the RepoMap's configured default (see effectiveBudget); nonzero is used as is
	ExcludeUnranked bool
	TokenCounter    TokenCounter // nil = DefaultTokenCounter()
}

// Result is the non-nil outcome of a successful GetRepoMap call.
type Result struct {
	Text   string
	Tags   []RankedTag
	Tokens int
}

// GetRepoMap is the library's single entry point (spec.md §6's
// get_repo_map): it returns (nil, report) when the reference graph is
// empty or the budget admits nothing.
func (r *RepoMap) GetRepoMap(opts Options) (*Result, *FileReport) {
	runID := uuid.New().String()
	start := time.Now()

	if opts.MentionedFnames == nil {
		opts.MentionedFnames = map[string]bool{}
	}
	if opts.MentionedIdents == nil {
		opts.MentionedIdents = map[string]bool{}
	}

	maxMapTokens := opts.MaxMapTokens
	if maxMapTokens == 0 {
		maxMapTokens = r.maxMapTokens
	}
	if maxMapTokens < 0 {
		maxMapTokens = 0 // spec.md §7 "Programmer errors": clamped to zero
	}

	if maxMapTokens == 0 {
		log.Warn().Str("run", runID).Msg("repo map disabled: max_map_tokens is 0")
		return nil, newFileReport()
	}

	if opts.MaxMapTokens == 0 {
		maxMapTokens = r.effectiveBudget(maxMapTokens, len(opts.ChatFiles))
	}

	counter := opts.TokenCounter
	if counter == nil {
		counter = DefaultTokenCounter()
	}

	graphResult, report := r.builder.Build(opts.ChatFiles, opts.OtherFiles, opts.MentionedFnames, opts.MentionedIdents, r.root, opts.ForceRefresh)

	if graphResult.Nodes() == 0 {
		r.recordProcessingTime(start)
		return nil, report
	}

	ranked, fellBack := r.ranker.Rank(graphResult, opts.MentionedIdents)
	report.RankFallback = fellBack

	if opts.ExcludeUnranked {
		filtered := ranked[:0]
		for _, t := range ranked {
			if t.Score > 0 {
				filtered = append(filtered, t)
			}
		}
		ranked = filtered
	}

	fitter := NewFitter(r.renderer, counter)
	fit := fitter.Fit(ranked, opts.ChatFiles, r.root, maxMapTokens)

	r.recordProcessingTime(start)

	if fit.Rendered == "" {
		return nil, report
	}

	other := ""
	if len(opts.ChatFiles) > 0 {
		other = "other "
	}

	var text strings.Builder
	if r.contentPrefix != "" {
		text.WriteString(strings.ReplaceAll(r.contentPrefix, "{other}", other))
	}
	text.WriteString(fit.Rendered)

	r.mu.Lock()
	r.lastMap = text.String()
	r.mu.Unlock()

	if r.verbose {
		printReport(report)
	}

	return &Result{Text: text.String(), Tags: fit.Selected, Tokens: fit.Tokens}, report
}

// effectiveBudget implements the teacher's Generate budget-expansion logic.
// GetRepoMap applies it only to the configured default budget (a per-call
// Options.MaxMapTokens is never expanded): when no chat files are pinned,
// the map is allowed to grow up to
// maxMapTokens * maxCtxFileMultiplier, capped by (maxCtxWindow - padding).
func (r *RepoMap) effectiveBudget(maxMapTokens, numChatFiles int) int {
	const padding = 4096

	if r.maxCtxWindow <= 0 || numChatFiles > 0 {
		return maxMapTokens
	}

	t := maxMapTokens * r.maxCtxFileMultiplier
	ceiling := r.maxCtxWindow - padding
	if ceiling < 0 {
		ceiling = 0
	}
	if t > ceiling {
		t = ceiling
	}
	if t <= 0 {
		return maxMapTokens
	}
	return t
}

func (r *RepoMap) recordProcessingTime(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalProcessingTime = time.Since(start).Seconds()
}

// TotalProcessingTime returns the wall-clock duration of the most recent
// GetRepoMap call, in seconds.
func (r *RepoMap) TotalProcessingTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalProcessingTime
}
