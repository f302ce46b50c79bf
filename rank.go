package repomap

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
	pageRankMaxIters  = 100
)

// Ranker runs personalized PageRank over a ReferenceGraph and distributes
// each file's rank across the definitions it contains (spec.md §4.4).
//
// gonum's network.PageRank does not accept a personalization vector, so —
// per spec.md §9 "Graph library coupling" — the power iteration is
// implemented directly against spec.md's adjacency (damping 0.85, supplied
// personalization, weighted edges, L1 delta below 1e-6 or 100 iterations).
// The edges it walks are read straight off the gonum multigraph built in
// graph.go via collectEdges, so that graph is the sole source of truth for
// the ranking — nothing here maintains a parallel adjacency.
type Ranker struct{}

// NewRanker returns a ready-to-use Ranker.
func NewRanker() *Ranker { return &Ranker{} }

// weightedEdge is a (src file, dst file, weight) pair read directly off the
// gonum multigraph's lines.
type weightedEdge struct {
	src, dst string
	weight   float64
}

// collectEdges walks g.g's nodes using gonum's From/WeightedLines iterators
// and, for every ordered pair with at least one line between them, sums the
// weight of all identifier-labeled lines (spec.md §3's multigraph collapses
// to a single weighted adjacency for the power iteration).
func collectEdges(g *ReferenceGraph) []weightedEdge {
	var edges []weightedEdge
	if g.g == nil {
		return edges
	}

	for _, src := range g.Files {
		srcNode, ok := g.nodeByFile[src]
		if !ok {
			continue
		}

		to := g.g.From(srcNode.ID())
		for to.Next() {
			dstNode := to.Node()
			dst, ok := g.fileByNode[dstNode.ID()]
			if !ok {
				continue
			}

			var w float64
			lines := g.g.WeightedLines(srcNode.ID(), dstNode.ID())
			for lines.Next() {
				w += lines.WeightedLine().Weight()
			}

			edges = append(edges, weightedEdge{src: src, dst: dst, weight: w})
		}
	}

	return edges
}

func sumOutWeights(files []string, edges []weightedEdge) map[string]float64 {
	out := make(map[string]float64, len(files))
	for _, e := range edges {
		out[e.src] += e.weight
	}
	return out
}

// Rank implements spec.md §4.4: PageRank over the gonum multigraph's edges
// with g.Personalization, then distribution of each file's rank across its
// outgoing edges onto the definitions they reference. fellBack reports
// whether the power iteration failed to converge and uniform ranks were
// substituted.
func (rk *Ranker) Rank(g *ReferenceGraph, mentionedIdents map[string]bool) (ranked []RankedTag, fellBack bool) {
	edges := collectEdges(g)
	outSum := sumOutWeights(g.Files, edges)

	pr, fellBack := rk.pageRank(g, edges, outSum)

	scores := rk.distribute(g, pr, outSum, mentionedIdents)

	for key, score := range scores {
		for _, tag := range g.definitions[key] {
			ranked = append(ranked, RankedTag{Tag: tag, Score: score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].RelPath != ranked[j].RelPath {
			return ranked[i].RelPath < ranked[j].RelPath
		}
		return ranked[i].Line < ranked[j].Line
	})

	return ranked, fellBack
}

// pageRank runs the power iteration described in spec.md §9 over edges read
// from the gonum multigraph. It returns a per-file rank map summing to 1
// across nodes, falling back to a uniform distribution if the iteration cap
// is hit without converging.
func (rk *Ranker) pageRank(g *ReferenceGraph, edges []weightedEdge, outSum map[string]float64) (map[string]float64, bool) {
	n := len(g.Files)
	if n == 0 {
		return map[string]float64{}, false
	}

	pr := make(map[string]float64, n)
	uniform := 1.0 / float64(n)
	for _, f := range g.Files {
		pr[f] = uniform
	}

	personalization := g.Personalization
	if len(personalization) == 0 {
		personalization = make(map[string]float64, n)
		for _, f := range g.Files {
			personalization[f] = uniform
		}
	}

	converged := false
	for iter := 0; iter < pageRankMaxIters; iter++ {
		next := make(map[string]float64, n)
		var danglingMass float64

		for _, f := range g.Files {
			if outSum[f] == 0 {
				danglingMass += pr[f]
			}
		}

		for _, f := range g.Files {
			next[f] = (1 - pageRankDamping) * personalization[f]
			next[f] += pageRankDamping * danglingMass * personalization[f]
		}

		for _, e := range edges {
			total := outSum[e.src]
			if total == 0 {
				continue
			}
			next[e.dst] += pageRankDamping * pr[e.src] * (e.weight / total)
		}

		var delta float64
		for _, f := range g.Files {
			delta += math.Abs(next[f] - pr[f])
		}

		pr = next

		if delta < pageRankTolerance {
			converged = true
			break
		}
	}

	if !converged {
		log.Warn().Msg("pagerank did not converge within iteration cap; falling back to uniform ranks")
		uniformPR := make(map[string]float64, n)
		for _, f := range g.Files {
			uniformPR[f] = uniform
		}
		return uniformPR, true
	}

	return normalizeSumToOne(pr), false
}

func normalizeSumToOne(pr map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range pr {
		sum += v
	}
	if sum == 0 {
		return pr
	}
	out := make(map[string]float64, len(pr))
	for k, v := range pr {
		out[k] = v / sum
	}
	return out
}

// distribute implements spec.md §4.4 step 2: edge (R -> D, ident) receives
// r_R * weight(R->D,ident) / sum_out_weight(R); the definition (D, ident)
// accumulates the sum over all incoming edges with matching ident.
// sum_out_weight(R) is the same outSum the power iteration used, so the
// distribution stays consistent with the ranks it distributes.
func (rk *Ranker) distribute(g *ReferenceGraph, pr map[string]float64, outSum map[string]float64, mentionedIdents map[string]bool) map[tagKey]float64 {
	scores := make(map[tagKey]float64)

	for ident, defFiles := range g.defines {
		if _, isEdgeIdent := g.identifiers[ident]; !isEdgeIdent {
			continue
		}

		occurrences := make(map[string]int)
		for _, refFile := range g.references[ident] {
			occurrences[refFile]++
		}

		for refFile, count := range occurrences {
			total := outSum[refFile]
			if total == 0 {
				continue
			}
			w := edgeWeight(ident, count, mentionedIdents)
			srcRank := pr[refFile]

			for defFile := range defFiles {
				if refFile == defFile {
					continue
				}
				key := tagKey{file: defFile, symbol: ident}
				scores[key] += srcRank * (w / total)
			}
		}
	}

	// Definitions with no inbound rank still appear, scored 0 (spec.md §4.4 step 2).
	for key := range g.definitions {
		if _, ok := scores[key]; !ok {
			scores[key] = 0
		}
	}

	return scores
}
