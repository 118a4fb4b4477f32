package assemble_test

import (
	"math"
	"strings"
	"testing"

	"newsreel/internal/assemble"
	"newsreel/internal/renderplan"
)

func TestLayoutAnchorFollowsOverlayFlag(t *testing.T) {
	spans := []assemble.PartSpan{{Script: "A short caption line.", Start: 0, Seconds: 10}}

	plain := (&assemble.CaptionLayout{Width: 1080, Overlay: false}).Layout(spans, renderplan.CaptionStatic)
	overlaid := (&assemble.CaptionLayout{Width: 1080, Overlay: true}).Layout(spans, renderplan.CaptionStatic)

	if plain.AnchorY != 0.80 {
		t.Fatalf("anchor without overlay %f, want 0.80", plain.AnchorY)
	}
	if overlaid.AnchorY != 0.75 {
		t.Fatalf("anchor with overlay %f, want 0.75", overlaid.AnchorY)
	}
}

func TestLayoutStaticOneFramePerSentence(t *testing.T) {
	layout := &assemble.CaptionLayout{Width: 1080}
	spans := []assemble.PartSpan{{
		Script:  "First sentence here. Second one follows. Third closes it out.",
		Start:   0,
		Seconds: 12,
	}}

	track := layout.Layout(spans, renderplan.CaptionStatic)
	if len(track.Frames) != 3 {
		t.Fatalf("frames %d, want 3", len(track.Frames))
	}
	if track.Frames[0].Start != 0 {
		t.Fatalf("first frame starts at %f", track.Frames[0].Start)
	}
	if math.Abs(track.Frames[2].End-12) > 1e-9 {
		t.Fatalf("last frame ends at %f, want 12", track.Frames[2].End)
	}
	for i := 1; i < len(track.Frames); i++ {
		if track.Frames[i].Start != track.Frames[i-1].End {
			t.Fatalf("gap between frames %d and %d", i-1, i)
		}
	}
}

func TestLayoutWindowsWeightedByWords(t *testing.T) {
	layout := &assemble.CaptionLayout{Width: 1080}
	// Nine words then three words: windows should split 7.5s / 2.5s.
	spans := []assemble.PartSpan{{
		Script:  "One two three four five six seven eight nine. Ten eleven twelve.",
		Start:   0,
		Seconds: 10,
	}}

	track := layout.Layout(spans, renderplan.CaptionStatic)
	if len(track.Frames) != 2 {
		t.Fatalf("frames %d, want 2", len(track.Frames))
	}
	if math.Abs(track.Frames[0].End-7.5) > 1e-9 {
		t.Fatalf("first window ends at %f, want 7.5", track.Frames[0].End)
	}
}

func TestLayoutTypewriterRevealsWords(t *testing.T) {
	layout := &assemble.CaptionLayout{Width: 1080}
	spans := []assemble.PartSpan{{Script: "Council approves the budget.", Start: 0, Seconds: 8}}

	track := layout.Layout(spans, renderplan.CaptionTypewriter)
	if len(track.Frames) != 4 {
		t.Fatalf("frames %d, want one per word", len(track.Frames))
	}
	if track.Frames[0].Text != "Council" {
		t.Fatalf("first reveal %q", track.Frames[0].Text)
	}
	if track.Frames[3].Text != "Council approves the budget." {
		t.Fatalf("final reveal %q", track.Frames[3].Text)
	}
	for i := 1; i < len(track.Frames); i++ {
		if track.Frames[i].Start <= track.Frames[i-1].Start {
			t.Fatalf("onsets not increasing at frame %d", i)
		}
		if !strings.HasPrefix(track.Frames[i].Text, track.Frames[i-1].Text) {
			t.Fatalf("reveal %d does not extend %d", i, i-1)
		}
	}
	// Longer words push the next onset further out.
	gapAfterCouncil := track.Frames[1].Start - track.Frames[0].Start
	gapAfterThe := track.Frames[3].Start - track.Frames[2].Start
	if gapAfterCouncil <= gapAfterThe {
		t.Fatalf("char weighting lost: %f vs %f", gapAfterCouncil, gapAfterThe)
	}
}

func TestLayoutFontStepsDownThenTruncates(t *testing.T) {
	layout := &assemble.CaptionLayout{Width: 1080}

	short := layout.Layout([]assemble.PartSpan{{Script: "Short headline.", Seconds: 5}}, renderplan.CaptionStatic)
	if short.Frames[0].FontSize != 46 || short.Frames[0].Truncated {
		t.Fatalf("short text got size %d truncated %v", short.Frames[0].FontSize, short.Frames[0].Truncated)
	}

	medium := layout.Layout([]assemble.PartSpan{{
		Script:  "A sentence that is noticeably longer than one line.",
		Seconds: 5,
	}}, renderplan.CaptionStatic)
	if medium.Frames[0].FontSize >= 46 {
		t.Fatalf("medium text kept size %d", medium.Frames[0].FontSize)
	}
	if medium.Frames[0].Truncated {
		t.Fatal("medium text should fit without truncation")
	}

	long := layout.Layout([]assemble.PartSpan{{
		Script:  "This sentence keeps going well past any reasonable caption width so that no font size in the ladder can make it fit on screen.",
		Seconds: 5,
	}}, renderplan.CaptionStatic)
	frame := long.Frames[0]
	if frame.FontSize != 28 {
		t.Fatalf("overlong text got size %d, want minimum 28", frame.FontSize)
	}
	if !frame.Truncated || !strings.HasSuffix(frame.Text, "…") {
		t.Fatalf("overlong text not truncated: %+v", frame)
	}
}
