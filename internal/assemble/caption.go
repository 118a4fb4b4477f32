package assemble

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"newsreel/internal/renderplan"
	"newsreel/internal/scripting"
)

// Caption placement constants. The vertical anchor depends only on
// whether the branding overlay is enabled; horizontal centering never
// changes.
const (
	anchorWithOverlay    = 0.75
	anchorWithoutOverlay = 0.80

	captionSideMargin = 80
	ellipsis          = "…"
)

// fontSteps are the sizes tried in order before truncation.
var fontSteps = []int{46, 40, 34, 28}

// PartSpan locates one story's script on the narration timeline.
type PartSpan struct {
	Script  string
	Start   float64
	Seconds float64
}

// CaptionLayout computes the caption track for a render.
type CaptionLayout struct {
	Width   int
	Overlay bool
}

// Layout chunks each part's script into sentences, assigns each
// sentence a window proportional to its word count, and emits either a
// typewriter reveal (single mode) or static frames (digest mode).
func (l *CaptionLayout) Layout(parts []PartSpan, mode string) renderplan.CaptionTrack {
	track := renderplan.CaptionTrack{
		Mode:    mode,
		AnchorY: anchorWithoutOverlay,
	}
	if l.Overlay {
		track.AnchorY = anchorWithOverlay
	}

	for _, part := range parts {
		sentences := scripting.SplitSentences(part.Script)
		if len(sentences) == 0 {
			continue
		}
		windows := sentenceWindows(sentences, part.Start, part.Seconds)
		for i, sentence := range sentences {
			text, size, truncated := l.fit(sentence)
			if mode == renderplan.CaptionTypewriter {
				track.Frames = append(track.Frames, revealFrames(text, size, truncated, windows[i], windows[i+1])...)
			} else {
				track.Frames = append(track.Frames, renderplan.CaptionFrame{
					Text:      text,
					Start:     windows[i],
					End:       windows[i+1],
					FontSize:  size,
					Truncated: truncated,
				})
			}
		}
	}
	return track
}

// sentenceWindows returns len(sentences)+1 boundaries across the span,
// spaced proportionally to sentence word counts. The final boundary is
// pinned to the span end so rounding never drifts.
func sentenceWindows(sentences []string, start, seconds float64) []float64 {
	totalWords := 0
	for _, sentence := range sentences {
		totalWords += scripting.WordCount(sentence)
	}
	boundaries := make([]float64, len(sentences)+1)
	boundaries[0] = start
	elapsedWords := 0
	for i := 0; i < len(sentences)-1; i++ {
		elapsedWords += scripting.WordCount(sentences[i])
		boundaries[i+1] = start + seconds*float64(elapsedWords)/float64(totalWords)
	}
	boundaries[len(sentences)] = start + seconds
	return boundaries
}

// revealFrames spreads word onsets across the sentence window, each
// onset weighted by the characters spoken so far.
func revealFrames(text string, size int, truncated bool, start, end float64) []renderplan.CaptionFrame {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	totalChars := 0
	for _, word := range words {
		totalChars += len([]rune(word)) + 1
	}

	frames := make([]renderplan.CaptionFrame, 0, len(words))
	shown := make([]string, 0, len(words))
	charsBefore := 0
	duration := end - start
	for i, word := range words {
		onset := start + duration*float64(charsBefore)/float64(totalChars)
		charsBefore += len([]rune(word)) + 1
		next := end
		if i < len(words)-1 {
			next = start + duration*float64(charsBefore)/float64(totalChars)
		}
		shown = append(shown, word)
		frames = append(frames, renderplan.CaptionFrame{
			Text:      strings.Join(shown, " "),
			Start:     onset,
			End:       next,
			FontSize:  size,
			Truncated: truncated && i == len(words)-1,
		})
	}
	return frames
}

// fit steps the font size down until the text fits the safe area, then
// truncates with an ellipsis at the smallest size.
func (l *CaptionLayout) fit(text string) (string, int, bool) {
	safeWidth := l.Width - 2*captionSideMargin
	for _, size := range fontSteps {
		if textPixels(text, size) <= safeWidth {
			return text, size, false
		}
	}

	size := fontSteps[len(fontSteps)-1]
	runes := []rune(text)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + ellipsis
		if textPixels(candidate, size) <= safeWidth {
			return candidate, size, true
		}
	}
	return ellipsis, size, true
}

// textPixels approximates rendered width from the monospace cell count.
// Wide runes count double through runewidth, matching how the encoder's
// font renders CJK.
func textPixels(text string, fontSize int) int {
	return runewidth.StringWidth(text) * fontSize * 55 / 100
}
