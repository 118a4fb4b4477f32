package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

const (
	titleFontSize = 54
	titleAnchorY  = 0.08
	watermarkPad  = 40
)

// BuildArgs compiles a validated plan into the complete ffmpeg argument
// list, writing to outPath. Input order is segments, audio tracks, then
// overlay images; the filtergraph references them by that order.
func BuildArgs(plan *renderplan.Plan, outPath string) ([]string, error) {
	if plan == nil {
		return nil, services.Wrap(services.ErrValidation, "render", "build", "no render plan", nil)
	}
	if outPath == "" {
		return nil, services.Wrap(services.ErrValidation, "render", "build", "no output path", nil)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}

	for _, seg := range plan.Segments {
		args = append(args,
			"-loop", "1",
			"-framerate", strconv.Itoa(plan.FPS),
			"-t", ffloat(seg.Seconds),
			"-i", seg.Image,
		)
	}

	audio := audioTracks(plan)
	for _, track := range audio {
		if seconds, ok := renderplan.ParseSilenceRef(track.Ref); ok {
			args = append(args, "-f", "lavfi", "-t", ffloat(seconds), "-i", "anullsrc=r=44100:cl=stereo")
		} else {
			args = append(args, "-i", track.Ref)
		}
	}

	brandingIndex, watermarkIndex := -1, -1
	next := len(plan.Segments) + len(audio)
	if source := layerSource(plan, renderplan.LayerBranding); source != "" {
		args = append(args, "-i", source)
		brandingIndex = next
		next++
	}
	if source := layerSource(plan, renderplan.LayerWatermark); source != "" {
		args = append(args, "-i", source)
		watermarkIndex = next
	}

	filter, err := buildFilter(plan, len(audio), brandingIndex, watermarkIndex)
	if err != nil {
		return nil, err
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "[aout]",
		"-r", strconv.Itoa(plan.FPS),
		"-t", ffloat(plan.RenderSeconds()),
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	)
	return args, nil
}

// audioTracks normalizes the plan's audio to an ordered track list.
func audioTracks(plan *renderplan.Plan) []renderplan.AudioPart {
	if len(plan.AudioParts) > 0 {
		return plan.AudioParts
	}
	return []renderplan.AudioPart{{Ref: plan.AudioRef, Seconds: plan.NarrationSeconds}}
}

func layerSource(plan *renderplan.Plan, kind string) string {
	for _, layer := range plan.Overlay.Layers {
		if layer.Kind == kind {
			return layer.Source
		}
	}
	return ""
}

func buildFilter(plan *renderplan.Plan, audioCount, brandingIndex, watermarkIndex int) (string, error) {
	var chains []string

	for i, seg := range plan.Segments {
		chains = append(chains, fmt.Sprintf("[%d:v]%sscale=%d:%d,setsar=1[s%d]",
			i, motionFilter(seg), plan.Width, plan.Height, i))
	}

	current := "[s0]"
	for j, tr := range plan.Transitions {
		out := fmt.Sprintf("[x%d]", j+1)
		in := fmt.Sprintf("[s%d]", j+1)
		if tr.Seconds == 0 {
			chains = append(chains, fmt.Sprintf("%s%sconcat=n=2:v=1:a=0%s", current, in, out))
		} else {
			chains = append(chains, fmt.Sprintf("%s%sxfade=transition=%s:duration=%s:offset=%s%s",
				current, in, tr.Kind, ffloat(tr.Seconds), ffloat(tr.Offset), out))
		}
		current = out
	}

	if brandingIndex >= 0 {
		chains = append(chains, fmt.Sprintf("[%d:v]scale=%d:%d[brand]", brandingIndex, plan.Width, plan.Height))
		chains = append(chains, fmt.Sprintf("%s[brand]overlay=0:0[ov]", current))
		current = "[ov]"
	}

	if text := textFilter(plan); text != "" {
		chains = append(chains, current+text+"[cap]")
		current = "[cap]"
	}

	if watermarkIndex >= 0 {
		chains = append(chains, fmt.Sprintf("%s[%d:v]overlay=W-w-%d:%d[vout]", current, watermarkIndex, watermarkPad, watermarkPad))
	} else {
		chains = append(chains, current+"null[vout]")
	}

	firstAudio := len(plan.Segments)
	if audioCount == 1 {
		chains = append(chains, fmt.Sprintf("[%d:a]anull[aout]", firstAudio))
	} else {
		var inputs strings.Builder
		for i := 0; i < audioCount; i++ {
			fmt.Fprintf(&inputs, "[%d:a]", firstAudio+i)
		}
		chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", inputs.String(), audioCount))
	}

	return strings.Join(chains, ";"), nil
}

// motionFilter renders a segment's keyframe sweep as an animated crop.
// The crop interpolates between the first and last keyframe with the
// same eased curve the scheduler used, so the encoder reproduces the
// planned motion without carrying every keyframe in the command line.
func motionFilter(seg renderplan.Segment) string {
	if len(seg.Motion) == 0 {
		return ""
	}
	start := seg.Motion[0]
	end := seg.Motion[len(seg.Motion)-1]
	return fmt.Sprintf("crop=w='iw*%s':h='ih*%s':x='iw*%s':y='ih*%s':exact=1,",
		sweep(start.W, end.W, seg.Frames),
		sweep(start.H, end.H, seg.Frames),
		sweep(start.X, end.X, seg.Frames),
		sweep(start.Y, end.Y, seg.Frames),
	)
}

// sweep is an ffmpeg expression easing from start to end over the
// segment's frames, using frame number n.
func sweep(start, end float64, frames int) string {
	if frames <= 1 || start == end {
		return ffloat(start)
	}
	last := frames - 1
	return fmt.Sprintf("(%s+%s*pow(n/%d\\,2)*(3-2*n/%d))",
		ffloat(start), ffloat(end-start), last, last)
}

// textFilter chains drawtext entries for titles then captions.
func textFilter(plan *renderplan.Plan) string {
	var filters []string
	for _, title := range plan.Titles {
		filters = append(filters, drawtext(title.Text, titleFontSize, titleAnchorY, title.Start, title.End, true))
	}
	for _, frame := range plan.Captions.Frames {
		filters = append(filters, drawtext(frame.Text, frame.FontSize, plan.Captions.AnchorY, frame.Start, frame.End, false))
	}
	return strings.Join(filters, ",")
}

func drawtext(text string, fontSize int, anchorY, start, end float64, boxed bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s':fontsize=%d:fontcolor=white", escapeText(text), fontSize)
	if boxed {
		b.WriteString(":box=1:boxcolor=black@0.6:boxborderw=18")
	} else {
		b.WriteString(":borderw=3:bordercolor=black")
	}
	fmt.Fprintf(&b, ":x=(w-text_w)/2:y=h*%s:enable='between(t\\,%s\\,%s)'",
		ffloat(anchorY), ffloat(start), ffloat(end))
	return b.String()
}

// escapeText quotes drawtext metacharacters.
func escapeText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\%`,
		`,`, `\,`,
	)
	return replacer.Replace(text)
}

func ffloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
