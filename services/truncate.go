package services

import (
	"regexp"
	"strings"
)

var tokenSplitter = regexp.MustCompile(`\s+|[,.!?;]`)

// EstimateTokens approximates a token count by splitting on whitespace and
// common punctuation. It is not a model tokenizer.
func EstimateTokens(text string) int {
	n := 0
	for _, piece := range tokenSplitter.Split(text, -1) {
		if piece != "" {
			n++
		}
	}
	return n
}

// TruncateContext returns text unchanged when its estimate fits within
// budget, otherwise its first budget whitespace-separated words joined by
// single spaces. The second return value reports whether it truncated.
func TruncateContext(text string, budget int) (string, bool) {
	if budget < 0 {
		budget = 0
	}
	if EstimateTokens(text) <= budget {
		return text, false
	}
	words := strings.Fields(text)
	if len(words) > budget {
		words = words[:budget]
	}
	return strings.Join(words, " "), true
}
