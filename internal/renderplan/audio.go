package renderplan

import (
	"fmt"
	"strconv"
	"strings"
)

const silencePrefix = "silence:"

// SilenceRef encodes a silent audio reference of the given length. The
// encoder resolves it to generated silence at render time, so a degraded
// run needs no audio file on disk.
func SilenceRef(seconds float64) string {
	return fmt.Sprintf("%s%.3f", silencePrefix, seconds)
}

// ParseSilenceRef decodes a silent audio reference. The second return is
// false for ordinary file paths.
func ParseSilenceRef(ref string) (float64, bool) {
	if !strings.HasPrefix(ref, silencePrefix) {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimPrefix(ref, silencePrefix), 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return seconds, true
}
