package repomap

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// DefaultEncoding is the tiktoken encoding used when no model-specific
// TokenCounter is supplied (spec.md §6 "model_name" / §9 "Tokenizer coupling").
const DefaultEncoding = "cl100k_base"

var (
	defaultEncOnce sync.Once
	defaultEnc     *tiktoken.Tiktoken
)

// DefaultTokenCounter returns a TokenCounter backed by tiktoken-go. It is
// the library's real, concrete default; core components never depend on
// it directly — they take an injected TokenCounter — so tests can swap in
// a trivial word-count stub per spec.md §9.
func DefaultTokenCounter() TokenCounter {
	defaultEncOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load tiktoken encoding; falling back to whitespace token counter")
			defaultEnc = nil
			return
		}
		defaultEnc = enc
	})

	if defaultEnc == nil {
		return wordCountTokenCounter
	}

	enc := defaultEnc
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// wordCountTokenCounter is the degraded fallback used only if the tiktoken
// encoding table fails to load (e.g. offline with no cached BPE ranks).
func wordCountTokenCounter(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
