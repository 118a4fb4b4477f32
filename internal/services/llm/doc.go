// Package llm wraps an OpenRouter-compatible chat completion endpoint
// for script and headline generation.
//
// The client retries transient HTTP failures with capped exponential
// backoff and honors Retry-After. Responses are requested in JSON mode
// and decoded tolerantly: code fences and prose around the payload are
// stripped before unmarshaling.
package llm
