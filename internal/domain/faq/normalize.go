package faq

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// prepareQuery trims and bounds the raw question, then case-folds it. Length
// is counted in code points after trimming.
func prepareQuery(raw string, minLen, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)
	if n < minLen || n > maxLen {
		return "", apperrors.Wrap(CodeInvalidInput,
			fmt.Sprintf("question must be between %d and %d characters", minLen, maxLen), nil)
	}
	return strings.ToLower(trimmed), nil
}

// normalizeQuestion is the canonical form used to group trending queries.
func normalizeQuestion(q string) string {
	lowered := strings.ToLower(strings.TrimSpace(q))
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// punctuation and whitespace collapse to one space
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
