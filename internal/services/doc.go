// Package services defines shared utilities consumed by the orchestrator and
// the analysis service client.
//
// Key responsibilities:
//   - Context helpers that stamp remote job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (local validation vs transport vs explicit service errors)
//     without string matching.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
