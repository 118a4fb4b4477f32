// Package tts wraps an ElevenLabs-compatible text-to-speech endpoint for
// narration synthesis.
//
// Failures are tagged with the services error taxonomy: credit or quota
// exhaustion and auth rejections surface as unavailable so the pipeline
// routes straight to the silent fallback, server errors surface as
// transient for the retry budget.
package tts
