package faq

import (
	"strings"
	"unicode/utf8"
)

// BuildContext renders candidates as "Q: ...\nA: ...\n\n" blocks in order.
// It stops at the first block that would push the total past limit
// characters, so later and possibly shorter blocks are never packed in.
func BuildContext(candidates []Candidate, limit int) string {
	var (
		builder strings.Builder
		used    int
	)
	for _, c := range candidates {
		block := formatBlock(c)
		size := utf8.RuneCountInString(block)
		if used+size > limit {
			break
		}
		builder.WriteString(block)
		used += size
	}
	return builder.String()
}

func formatBlock(c Candidate) string {
	return "Q: " + c.Question + "\nA: " + c.Answer + "\n\n"
}
