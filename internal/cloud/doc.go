// Package cloud manages the advisory cloud capability layer of the analysis
// service: probing which backends are up, waking hibernating ones, and
// keeping the report fresh. Everything here is best-effort; a probe or wake
// failure degrades the report and never fails the caller.
package cloud
