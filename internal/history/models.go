package history

import "time"

// Record is one job ledger entry. ID is the local row id; JobID is the id the
// analysis service assigned.
type Record struct {
	ID           int64
	JobID        string
	SourceURL    string
	VideoID      string
	State        string
	SegmentStart float64
	SegmentEnd   float64
	HasSegment   bool
	AnalysisJSON string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
