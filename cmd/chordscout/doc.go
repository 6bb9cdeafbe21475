// Package main hosts the chordscout CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls
// against the remote music-analysis service: submitting media URLs, polling
// for waveforms and analysis results, waking cloud backends, and browsing the
// local job ledger. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
