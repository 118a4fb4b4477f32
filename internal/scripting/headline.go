package scripting

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackHeadline is used when no usable headline can be produced.
const FallbackHeadline = "BREAKING NEWS"

// maxHeadlineRunes bounds the title overlay so it fits the frame at the
// largest caption font.
const maxHeadlineRunes = 48

var upper = cases.Upper(language.AmericanEnglish)

// NormalizeHeadline upper-cases and length-clamps a headline, falling
// back to the default title when the input is unusable.
func NormalizeHeadline(raw string) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return FallbackHeadline
	}
	cleaned = upper.String(cleaned)
	runes := []rune(cleaned)
	if len(runes) <= maxHeadlineRunes {
		return cleaned
	}
	clipped := string(runes[:maxHeadlineRunes])
	if idx := strings.LastIndex(clipped, " "); idx > maxHeadlineRunes/2 {
		clipped = clipped[:idx]
	}
	return strings.TrimSpace(clipped)
}
