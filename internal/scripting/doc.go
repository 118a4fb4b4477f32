// Package scripting turns synced article text into a narration script
// and headline.
//
// The script stage asks the language model for a script sized to the
// narration rate and image count, so downstream timing lands near the
// intended per-image dwell. Mock runs skip the model and derive a
// deterministic script from the article itself. Headlines are always
// upper-cased and length-clamped, with BREAKING NEWS as the last-resort
// title.
package scripting
