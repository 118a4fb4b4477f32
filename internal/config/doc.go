// Package config loads, normalizes, and validates newsreel configuration.
//
// Configuration is TOML with env fallbacks for provider credentials
// (OPENROUTER_API_KEY, ELEVENLABS_API_KEY). Load resolves the config
// path, applies defaults, expands ~ in path fields, and validates the
// result so downstream packages can rely on usable values.
package config
