package repomap

// TokenCounter counts the number of tokens a rendered string would consume
// for whatever downstream model the caller targets (spec.md §9 "Tokenizer
// coupling"). The core never counts tokens itself.
type TokenCounter func(text string) int

// budgetTolerance is the "within 10% of budget on the low side" early-exit
// described in spec.md §4.5.
const budgetTolerance = 0.10

// Fitter binary-searches for the largest prefix of a ranked tag list whose
// rendering fits a token budget (spec.md §4.5).
type Fitter struct {
	renderer *Renderer
	counter  TokenCounter
}

// NewFitter builds a Fitter that renders candidate prefixes with renderer
// and measures them with counter.
func NewFitter(renderer *Renderer, counter TokenCounter) *Fitter {
	return &Fitter{renderer: renderer, counter: counter}
}

// FitResult is the outcome of a budget fit.
type FitResult struct {
	Selected []RankedTag
	Rendered string
	Tokens   int
}

// Fit implements spec.md §4.5's binary search. chatFiles are never
// included in the rendered output regardless of rank. budget <= 0 returns
// an empty selection (spec.md §7 "Programmer errors").
func (f *Fitter) Fit(ranked []RankedTag, chatFiles []string, root string, budget int) *FitResult {
	if budget < 0 {
		budget = 0
	}
	if budget == 0 || len(ranked) == 0 {
		return &FitResult{}
	}

	chatSet := make(map[string]struct{}, len(chatFiles))
	for _, c := range chatFiles {
		chatSet[relFname(root, c)] = struct{}{}
	}

	var candidates []RankedTag
	for _, t := range ranked {
		if _, excluded := chatSet[t.RelPath]; excluded {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return &FitResult{}
	}

	render := func(k int) (string, int) {
		tags := make([]Tag, k)
		for i := 0; i < k; i++ {
			tags[i] = candidates[i].Tag
		}
		text := f.renderer.Render(tags)
		return text, f.counter(text)
	}

	lo, hi := 0, len(candidates)
	best := 0
	bestText := ""
	bestTokens := 0

	for lo <= hi {
		mid := (lo + hi + 1) / 2 // tie resolves upward (spec.md §4.5)
		if mid == 0 {
			lo = 1
			continue
		}

		text, tokens := render(mid)

		if tokens <= budget {
			best, bestText, bestTokens = mid, text, tokens

			if float64(budget-tokens) <= budgetTolerance*float64(budget) {
				// Within 10% of budget on the low side: good enough,
				// avoid the extra log-factor of renderings.
				break
			}
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == 0 {
		return &FitResult{}
	}

	selected := make([]RankedTag, best)
	copy(selected, candidates[:best])

	return &FitResult{Selected: selected, Rendered: bestText, Tokens: bestTokens}
}
