package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: network hiccups, rate
	// limits, provider 5xx responses.
	ErrTransient = errors.New("transient failure")

	// ErrFatalProvider marks provider failures that retrying cannot fix:
	// bad credentials, unsupported input, malformed responses.
	ErrFatalProvider = errors.New("fatal provider error")

	// ErrUnavailable is the distinguished narration-unavailability marker
	// (credit exhaustion, disabled voice). It skips retry and routes the
	// stage straight to its fallback edge.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrValidation marks missing or corrupt source material.
	ErrValidation = errors.New("validation error")

	// ErrExternalTool marks failures reported by an external binary
	// (ffmpeg, ffprobe).
	ErrExternalTool = errors.New("external tool error")

	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Kind is the retry disposition of a classified error.
type Kind string

const (
	KindTransient   Kind = "transient"
	KindFatal       Kind = "fatal"
	KindUnavailable Kind = "unavailable"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its retry disposition. Unknown errors are
// treated as transient so a flaky collaborator gets the benefit of the
// configured retry budget; explicitly fatal markers never retry.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrFatalProvider),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration):
		return KindFatal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindFatal
	default:
		return KindTransient
	}
}

// Message extracts the human-readable portion of a wrapped error, dropping
// the sentinel prefix when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{
		ErrTransient, ErrFatalProvider, ErrUnavailable,
		ErrValidation, ErrExternalTool, ErrConfiguration,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
