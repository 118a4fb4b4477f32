// Package narration synthesizes spoken audio for scripts.
//
// The primary stage calls the TTS provider and measures the produced
// audio with ffprobe. The fallback stage is pure computation: it derives
// a silent audio reference from the script's word count at the
// configured speaking rate, so substitution can never fail. Mock runs
// route straight to the fallback.
package narration
