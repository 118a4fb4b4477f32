package assemble

import (
	"fmt"
	"math"

	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

// MotionScheduler computes deterministic pan/zoom keyframes for a still
// image. Even-indexed segments zoom in from the full window to the
// maximum zoom, odd-indexed segments zoom out, both center-anchored.
type MotionScheduler struct {
	Width   int
	Height  int
	FPS     int
	ZoomMax float64
}

// NewMotionScheduler builds a scheduler for the output geometry.
func NewMotionScheduler(width, height, fps int, zoomMax float64) *MotionScheduler {
	if zoomMax < 1 {
		zoomMax = 1
	}
	return &MotionScheduler{Width: width, Height: height, FPS: fps, ZoomMax: zoomMax}
}

// Schedule produces round(seconds*fps) keyframes interpolating between
// the full crop window and the zoomed one, eased so motion decelerates
// at both segment boundaries.
func (m *MotionScheduler) Schedule(imageW, imageH int, seconds float64, zoomIn bool) ([]renderplan.CropRect, error) {
	if imageW <= 0 || imageH <= 0 {
		return nil, services.Wrap(services.ErrValidation, "assemble", "motion", fmt.Sprintf("invalid image geometry %dx%d", imageW, imageH), nil)
	}
	frames := int(math.Round(seconds * float64(m.FPS)))
	if frames <= 0 {
		return nil, services.Wrap(services.ErrValidation, "assemble", "motion", fmt.Sprintf("segment of %.3fs yields no frames", seconds), nil)
	}

	full := m.fullWindow(imageW, imageH)
	zoomed := scaleCentered(full, 1/m.ZoomMax)

	start, end := full, zoomed
	if !zoomIn {
		start, end = zoomed, full
	}

	keyframes := make([]renderplan.CropRect, frames)
	for i := range keyframes {
		t := 0.0
		if frames > 1 {
			t = float64(i) / float64(frames-1)
		}
		keyframes[i] = lerpRect(start, end, smoothstep(t))
	}
	return keyframes, nil
}

// fullWindow is the largest crop matching the output aspect ratio,
// centered in the source image, in normalized coordinates.
func (m *MotionScheduler) fullWindow(imageW, imageH int) renderplan.CropRect {
	outAspect := float64(m.Width) / float64(m.Height)
	srcAspect := float64(imageW) / float64(imageH)

	if srcAspect > outAspect {
		// Source is wider than the output: full height, trimmed sides.
		w := outAspect / srcAspect
		return renderplan.CropRect{X: (1 - w) / 2, Y: 0, W: w, H: 1}
	}
	// Source is taller or equal: full width, trimmed top and bottom.
	h := srcAspect / outAspect
	return renderplan.CropRect{X: 0, Y: (1 - h) / 2, W: 1, H: h}
}

func scaleCentered(rect renderplan.CropRect, factor float64) renderplan.CropRect {
	w := rect.W * factor
	h := rect.H * factor
	return renderplan.CropRect{
		X: rect.X + (rect.W-w)/2,
		Y: rect.Y + (rect.H-h)/2,
		W: w,
		H: h,
	}
}

func lerpRect(a, b renderplan.CropRect, t float64) renderplan.CropRect {
	return renderplan.CropRect{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		W: a.W + (b.W-a.W)*t,
		H: a.H + (b.H-a.H)*t,
	}
}

// smoothstep eases in and out so velocity reaches zero at segment
// boundaries.
func smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}
