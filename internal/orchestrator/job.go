package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"chordscout/internal/analysis"
	"chordscout/internal/services"
)

// Job identifies one ingestion request and its lifecycle. Jobs are created on
// a successful ingest response and never mutated afterwards.
type Job struct {
	ID        string
	SourceURL string
	VideoID   string
	RequestID string
	CreatedAt time.Time
}

// Segment is a caller-chosen time sub-range of the ingested audio.
type Segment struct {
	Start float64
	End   float64
}

// Soft bounds for segment length. Outside this range analysis quality
// degrades; the reference UI suggests it but never enforces it.
const (
	recommendedMinSegmentSeconds = 1.0
	recommendedMaxSegmentSeconds = 30.0
)

// Validate checks hard constraints only. The recommended length band is a
// hint surfaced via Recommended, not a rejection.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return services.Wrap(services.ErrInvalidInput, "orchestrator", "segment", fmt.Sprintf("start %.3f must not be negative", s.Start), nil)
	}
	if s.End <= s.Start {
		return services.Wrap(services.ErrInvalidInput, "orchestrator", "segment", fmt.Sprintf("end %.3f must be greater than start %.3f", s.End, s.Start), nil)
	}
	return nil
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Recommended reports whether the segment falls inside the suggested band.
func (s Segment) Recommended() bool {
	d := s.Duration()
	return d >= recommendedMinSegmentSeconds && d <= recommendedMaxSegmentSeconds
}

// Snapshot captures the orchestrator's externally visible state at one
// moment. All fields are copies; mutating a snapshot has no effect.
type Snapshot struct {
	Job            *Job
	State          State
	Waveform       *analysis.WaveformData
	Analysis       json.RawMessage
	FailureMessage string
}
