// Package orchestrator sequences the remote music-analysis pipeline: it
// ingests a media URL, waits for the waveform, triggers segment analysis,
// and waits for the result. One job is active at a time; cancellation
// discards any response already in flight so a stale reply can never
// overwrite newer state.
package orchestrator
