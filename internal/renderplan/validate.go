package renderplan

import (
	"errors"
	"fmt"
	"math"
)

// Timing comparisons tolerate accumulated float error from the duration
// partition, never a real scheduling mistake.
const timingEpsilon = 1e-6

// Validate checks the plan against the timing contract.
func (p *Plan) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", p.FPS)
	}
	if len(p.Segments) == 0 {
		return errors.New("plan has no segments")
	}
	if p.NarrationSeconds <= 0 {
		return fmt.Errorf("invalid narration duration %f", p.NarrationSeconds)
	}
	if len(p.Transitions) != len(p.Segments)-1 {
		return fmt.Errorf("plan has %d transitions for %d segments", len(p.Transitions), len(p.Segments))
	}

	inputTotal := 0.0
	for i, seg := range p.Segments {
		if seg.Index != i {
			return fmt.Errorf("segment %d carries index %d", i, seg.Index)
		}
		if seg.Seconds <= 0 {
			return fmt.Errorf("segment %d has non-positive duration %f", i, seg.Seconds)
		}
		if seg.Image == "" {
			return fmt.Errorf("segment %d has no image", i)
		}
		if want := int(math.Round(seg.Seconds * float64(p.FPS))); seg.Frames != want {
			return fmt.Errorf("segment %d has %d frames, want %d", i, seg.Frames, want)
		}
		if len(seg.Motion) > 0 && len(seg.Motion) != seg.Frames {
			return fmt.Errorf("segment %d has %d motion keyframes for %d frames", i, len(seg.Motion), seg.Frames)
		}
		for k, rect := range seg.Motion {
			if err := validateRect(rect); err != nil {
				return fmt.Errorf("segment %d keyframe %d: %w", i, k, err)
			}
		}
		inputTotal += seg.Seconds
	}

	overlapTotal := 0.0
	for j, tr := range p.Transitions {
		if tr.Seconds < 0 {
			return fmt.Errorf("transition %d has negative duration %f", j, tr.Seconds)
		}
		limit := math.Min(p.Segments[j].Seconds, p.Segments[j+1].Seconds) / 2
		if tr.Seconds > limit+timingEpsilon {
			return fmt.Errorf("transition %d duration %f exceeds half of the shorter adjacent segment (%f)", j, tr.Seconds, limit)
		}
		overlapTotal += tr.Seconds
	}

	if diff := math.Abs(inputTotal - p.NarrationSeconds); diff > timingEpsilon {
		return fmt.Errorf("segment durations sum to %f, narration is %f", inputTotal, p.NarrationSeconds)
	}

	displayTotal := 0.0
	for _, seg := range p.Segments {
		displayTotal += seg.Display
	}
	if diff := math.Abs(displayTotal + overlapTotal - p.NarrationSeconds); diff > timingEpsilon {
		return fmt.Errorf("display time %f plus overlaps %f does not equal narration %f", displayTotal, overlapTotal, p.NarrationSeconds)
	}

	for _, frame := range p.Captions.Frames {
		if frame.Start < -timingEpsilon || frame.End > p.NarrationSeconds+timingEpsilon || frame.Start >= frame.End {
			return fmt.Errorf("caption window [%f, %f] outside narration span", frame.Start, frame.End)
		}
	}

	return nil
}

func validateRect(rect CropRect) error {
	if rect.W <= 0 || rect.H <= 0 {
		return fmt.Errorf("empty crop %+v", rect)
	}
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > 1+timingEpsilon || rect.Y+rect.H > 1+timingEpsilon {
		return fmt.Errorf("crop %+v leaves the source bounds", rect)
	}
	return nil
}
