// Package config loads, defaults, normalizes, and validates chordscout
// configuration from TOML.
//
// Resolution order: an explicit --config path, then
// ~/.config/chordscout/config.toml, then ./chordscout.toml, then built-in
// defaults. Path fields are tilde-expanded and made absolute during
// normalization so downstream code never deals with relative paths.
package config
