package analysis

import (
	"encoding/json"
)

// Status values reported by the analysis service for both the extraction and
// analysis phases of a job.
const (
	StatusProcessing = "processing"
	StatusAnalyzing  = "analyzing"
	StatusReady      = "ready"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// WaveformData is the extracted waveform payload attached to a ready job.
type WaveformData struct {
	Peaks      []float64
	Duration   float64
	SampleRate int
	Metadata   map[string]any
}

// UnmarshalJSON accepts both snake_case and camelCase field names; the
// service emits either depending on which path produced the payload.
func (w *WaveformData) UnmarshalJSON(data []byte) error {
	var aux struct {
		Peaks           []float64      `json:"peaks"`
		Duration        float64        `json:"duration"`
		DurationSeconds float64        `json:"durationSeconds"`
		SampleRateSnake int            `json:"sample_rate"`
		SampleRateCamel int            `json:"sampleRate"`
		Metadata        map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.Peaks = aux.Peaks
	w.Duration = aux.Duration
	if w.Duration == 0 {
		w.Duration = aux.DurationSeconds
	}
	w.SampleRate = aux.SampleRateSnake
	if w.SampleRate == 0 {
		w.SampleRate = aux.SampleRateCamel
	}
	w.Metadata = aux.Metadata
	return nil
}

// IngestAck is the normalized response to an ingest request.
type IngestAck struct {
	JobID   string
	Status  string
	Message string
}

func (a *IngestAck) UnmarshalJSON(data []byte) error {
	var aux struct {
		JobIDSnake string `json:"job_id"`
		JobIDCamel string `json:"jobId"`
		Status     string `json:"status"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.JobID = firstNonEmpty(aux.JobIDSnake, aux.JobIDCamel)
	a.Status = aux.Status
	a.Message = aux.Message
	return nil
}

// JobStatus is the normalized response to a status poll.
type JobStatus struct {
	JobID    string
	Status   string
	Waveform *WaveformData
	Error    string
}

func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var aux struct {
		JobIDSnake    string        `json:"job_id"`
		JobIDCamel    string        `json:"jobId"`
		Status        string        `json:"status"`
		WaveformSnake *WaveformData `json:"waveform_data"`
		WaveformCamel *WaveformData `json:"waveformData"`
		Error         string        `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.JobID = firstNonEmpty(aux.JobIDSnake, aux.JobIDCamel)
	s.Status = aux.Status
	s.Waveform = aux.WaveformSnake
	if s.Waveform == nil {
		s.Waveform = aux.WaveformCamel
	}
	s.Error = aux.Error
	return nil
}

// CloudOptions selects optional cloud enhancements for an analyze request.
type CloudOptions struct {
	SourceSeparation     bool `json:"sourceSeparation,omitempty"`
	AdvancedStructure    bool `json:"advancedStructure,omitempty"`
	EnhancedKeyDetection bool `json:"enhancedKeyDetection,omitempty"`
}

// AnalyzeOptions carries optional analyze request parameters. Zero values are
// omitted from the wire request.
type AnalyzeOptions struct {
	AnalysisVersion     string       `json:"analysisVersion,omitempty"`
	EnableCloudServices bool         `json:"enableCloudServices,omitempty"`
	CloudOptions        CloudOptions `json:"cloudOptions,omitzero"`
}

// AnalysisResult is the normalized response to an analyze request or a result
// poll. Analysis stays an opaque blob; only Status is interpreted.
type AnalysisResult struct {
	JobID    string
	Status   string
	Message  string
	Analysis json.RawMessage
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		JobIDSnake string          `json:"job_id"`
		JobIDCamel string          `json:"jobId"`
		Status     string          `json:"status"`
		Message    string          `json:"message"`
		Analysis   json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.JobID = firstNonEmpty(aux.JobIDSnake, aux.JobIDCamel)
	r.Status = aux.Status
	r.Message = aux.Message
	r.Analysis = aux.Analysis
	return nil
}

// HasAnalysis reports whether a non-null analysis payload is present.
func (r *AnalysisResult) HasAnalysis() bool {
	return len(r.Analysis) > 0 && string(r.Analysis) != "null"
}

// ServiceStatus describes one cloud service entry in the capability report.
type ServiceStatus struct {
	Enabled bool   `json:"enabled"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// CloudStatus maps service names to their reported status.
type CloudStatus map[string]ServiceStatus

// WakeResult is the normalized outcome of a wake request.
type WakeResult struct {
	Success  bool            `json:"success"`
	Services map[string]bool `json:"services"`
	Message  string          `json:"message,omitempty"`
}

// Woken reports whether any service acknowledged the wake request.
func (w WakeResult) Woken() bool {
	for _, ok := range w.Services {
		if ok {
			return true
		}
	}
	return false
}

// SeparationResult is the response to a separate-tracks request. Tracks maps
// stem names (vocals, drums, bass, other) to download URLs.
type SeparationResult struct {
	Success bool              `json:"success"`
	Tracks  map[string]string `json:"tracks"`
	Error   string            `json:"error,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
