// Package analysis provides the HTTP client for the remote music-analysis
// service.
//
// The service grew organically and its endpoints disagree on field naming:
// ingest and status speak snake_case while analyze and separate-tracks speak
// camelCase, and some deployments mirror responses in either convention. This
// package is the single normalization boundary for that inconsistency; the
// types it returns carry one canonical shape and downstream code never sees
// the wire names.
//
// Errors are tagged with the sentinel markers from internal/services so the
// orchestrator can distinguish transport failures (retryable during polling)
// from explicit service rejections (never retried).
package analysis
