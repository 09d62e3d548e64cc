package tokenizer

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const fallbackEncoding = "cl100k_base"

// Counter counts tokens with the BPE encoding of the configured model.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New loads the encoding for model. When no encoding can be loaded the
// counter falls back to a rough estimate.
func New(model string, logger *slog.Logger) *Counter {
	log := logger.With("component", "tokenizer")
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		log.Warn("tiktoken encoding unavailable, estimating tokens", "model", model, "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// CountTokens returns the number of tokens text encodes to.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate is an upper-biased token count: about one token per two runes,
// never below the word count.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}

var _ faq.TokenCounter = (*Counter)(nil)
