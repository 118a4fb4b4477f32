package scripting

import (
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`([.!?]+)\s+`)

// SplitSentences breaks prose into sentences, keeping terminal
// punctuation attached. Caption chunking and mock scripts share this so
// both see the same sentence boundaries.
func SplitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	marked := sentenceEnd.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
