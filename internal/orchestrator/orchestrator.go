package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chordscout/internal/analysis"
	"chordscout/internal/config"
	"chordscout/internal/history"
	"chordscout/internal/logging"
	"chordscout/internal/mediaurl"
	"chordscout/internal/services"
)

// Client is the subset of the analysis service surface the orchestrator
// drives. *analysis.Client satisfies it.
type Client interface {
	Ingest(ctx context.Context, sourceURL string, consent bool) (*analysis.IngestAck, error)
	Status(ctx context.Context, jobID string) (*analysis.JobStatus, error)
	StartAnalysis(ctx context.Context, jobID string, startSeconds, endSeconds float64, opts analysis.AnalyzeOptions) (*analysis.AnalysisResult, error)
	Result(ctx context.Context, jobID string) (*analysis.AnalysisResult, error)
}

// Settings carries the polling budgets for one orchestrator instance.
type Settings struct {
	StatusInterval        time.Duration
	StatusMaxAttempts     int
	ResultInterval        time.Duration
	ResultMaxAttempts     int
	TransportFailureLimit int
}

// SettingsFromConfig derives polling settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		StatusInterval:        time.Duration(cfg.Polling.StatusInterval) * time.Second,
		StatusMaxAttempts:     cfg.Polling.StatusMaxAttempts,
		ResultInterval:        time.Duration(cfg.Polling.ResultInterval) * time.Second,
		ResultMaxAttempts:     cfg.Polling.ResultMaxAttempts,
		TransportFailureLimit: cfg.Polling.TransportFailureLimit,
	}
}

func (s *Settings) normalize() {
	if s.StatusInterval <= 0 {
		s.StatusInterval = 2 * time.Second
	}
	if s.StatusMaxAttempts <= 0 {
		s.StatusMaxAttempts = 150
	}
	if s.ResultInterval <= 0 {
		s.ResultInterval = 2 * time.Second
	}
	if s.ResultMaxAttempts <= 0 {
		s.ResultMaxAttempts = 150
	}
	if s.TransportFailureLimit <= 0 {
		s.TransportFailureLimit = 5
	}
}

// Orchestrator drives the ingest → wait-ready → analyze → wait-completed
// pipeline for at most one active job at a time. All methods are safe for
// concurrent use; Submit and Analyze block until their phase finishes.
type Orchestrator struct {
	client    Client
	settings  Settings
	logger    *slog.Logger
	store     *history.Store
	supersede bool

	mu              sync.Mutex
	generation      uint64
	state           State
	job             *Job
	waveform        *analysis.WaveformData
	analysisPayload json.RawMessage
	failureMessage  string
	cancelPoll      context.CancelFunc
	record          *history.Record
}

// Option configures optional orchestrator behavior.
type Option func(*Orchestrator)

// WithHistory records job lifecycles in the given store.
func WithHistory(store *history.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithSupersede makes Submit cancel a still-active prior job instead of
// failing with the job-active error. The old polling loop is stopped
// synchronously before the new ingest goes out; its timers do not leak.
func WithSupersede() Option {
	return func(o *Orchestrator) {
		o.supersede = true
	}
}

// New constructs an orchestrator.
func New(client Client, settings Settings, logger *slog.Logger, opts ...Option) *Orchestrator {
	settings.normalize()
	o := &Orchestrator{
		client:   client,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit validates the source URL locally, ingests it, and blocks until the
// job's waveform is ready. Unrecognized URLs fail before any network call.
// While another job is active, Submit fails with the job-active error unless
// the orchestrator was built WithSupersede.
func (o *Orchestrator) Submit(ctx context.Context, sourceURL string) (*analysis.WaveformData, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	videoID, ok := mediaurl.Recognize(sourceURL)
	if !ok {
		return nil, services.Wrap(services.ErrInvalidInput, "orchestrator", "submit", fmt.Sprintf("unrecognized media url %q", sourceURL), nil)
	}

	o.mu.Lock()
	if o.job != nil && !o.state.Terminal() {
		if !o.supersede {
			o.mu.Unlock()
			return nil, services.Wrap(services.ErrJobActive, "orchestrator", "submit", fmt.Sprintf("job %s is still %s", o.job.ID, o.state), nil)
		}
		o.cancelActiveLocked("superseded")
	}
	o.generation++
	gen := o.generation
	o.state = StateProcessing
	o.job = nil
	o.waveform = nil
	o.analysisPayload = nil
	o.failureMessage = ""
	o.record = nil
	pollCtx, cancel := context.WithCancel(ctx)
	o.cancelPoll = cancel
	o.mu.Unlock()
	defer cancel()

	requestID := uuid.NewString()
	pollCtx = services.WithRequestID(pollCtx, requestID)
	logger := logging.WithContext(services.WithStage(pollCtx, "ingest"), o.logger)
	logger.Info("submitting media url", logging.String("video_id", videoID))

	ack, err := o.client.Ingest(pollCtx, sourceURL, true)
	if err != nil {
		return nil, o.failOrCanceled(pollCtx, gen, err)
	}

	job := &Job{
		ID:        ack.JobID,
		SourceURL: sourceURL,
		VideoID:   videoID,
		RequestID: requestID,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return nil, context.Canceled
	}
	o.job = job
	o.mu.Unlock()

	o.recordSubmit(job)
	pollCtx = services.WithJobID(pollCtx, job.ID)
	logger = logging.WithContext(services.WithStage(pollCtx, "wait-ready"), o.logger)
	logger.Info("ingestion accepted, waiting for waveform")

	waveform, err := o.pollUntilReady(pollCtx, logger, job.ID)
	if err != nil {
		return nil, o.failOrCanceled(pollCtx, gen, err)
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return nil, context.Canceled
	}
	o.state = StateReady
	o.waveform = waveform
	o.mu.Unlock()

	o.recordState(StateReady, "")
	logger.Info("waveform ready",
		logging.Int("peaks", len(waveform.Peaks)),
		logging.Float64("duration_seconds", waveform.Duration),
	)
	return waveform, nil
}

// Analyze triggers analysis of the chosen segment on the ready job and blocks
// until the result arrives. Invalid segments fail before any network call.
// The payload is returned verbatim; only its status discriminator was read.
func (o *Orchestrator) Analyze(ctx context.Context, segment Segment, opts analysis.AnalyzeOptions) (json.RawMessage, error) {
	if err := segment.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	switch {
	case o.job == nil || o.state == StateIdle:
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrInvalidInput, "orchestrator", "analyze", "no job submitted", nil)
	case o.state == StateAnalyzing:
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrJobActive, "orchestrator", "analyze", "analysis already in flight", nil)
	case o.state != StateReady:
		state := o.state
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrInvalidInput, "orchestrator", "analyze", fmt.Sprintf("job is %s, not ready", state), nil)
	}
	if o.waveform != nil && o.waveform.Duration > 0 && segment.End > o.waveform.Duration {
		duration := o.waveform.Duration
		o.mu.Unlock()
		return nil, services.Wrap(services.ErrInvalidInput, "orchestrator", "analyze", fmt.Sprintf("segment end %.3f exceeds audio duration %.3f", segment.End, duration), nil)
	}
	o.generation++
	gen := o.generation
	job := o.job
	o.state = StateAnalyzing
	pollCtx, cancel := context.WithCancel(ctx)
	o.cancelPoll = cancel
	o.mu.Unlock()
	defer cancel()

	pollCtx = services.WithJobID(services.WithRequestID(pollCtx, job.RequestID), job.ID)
	logger := logging.WithContext(services.WithStage(pollCtx, "analyze"), o.logger)
	if !segment.Recommended() {
		logger.Warn("segment outside recommended 1-30s band; analysis quality may suffer",
			logging.Float64("segment_seconds", segment.Duration()),
		)
	}
	logger.Info("starting analysis",
		logging.Float64("start_seconds", segment.Start),
		logging.Float64("end_seconds", segment.End),
		logging.Bool("cloud_services", opts.EnableCloudServices),
	)
	o.recordSegment(segment)
	o.recordState(StateAnalyzing, "")

	if _, err := o.client.StartAnalysis(pollCtx, job.ID, segment.Start, segment.End, opts); err != nil {
		return nil, o.failOrCanceled(pollCtx, gen, err)
	}

	payload, err := o.pollUntilAnalyzed(pollCtx, logger, job.ID)
	if err != nil {
		return nil, o.failOrCanceled(pollCtx, gen, err)
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return nil, context.Canceled
	}
	o.state = StateAnalyzed
	o.analysisPayload = payload
	o.mu.Unlock()

	o.recordAnalyzed(payload)
	logger.Info("analysis completed", logging.Int("payload_bytes", len(payload)))
	return payload, nil
}

// Cancel stops the active job's polling loop synchronously and returns the
// orchestrator to idle. Responses from requests already in flight are
// discarded; they can no longer mutate state. Cancel is a no-op when idle.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil && o.state == StateIdle {
		return
	}
	o.cancelActiveLocked("canceled")
}

// cancelActiveLocked requires o.mu. Bumping the generation makes every
// outstanding poll loop's result stale before its goroutine observes the
// context cancellation.
func (o *Orchestrator) cancelActiveLocked(reason string) {
	if o.cancelPoll != nil {
		o.cancelPoll()
		o.cancelPoll = nil
	}
	o.generation++
	record := o.record
	o.state = StateIdle
	o.job = nil
	o.waveform = nil
	o.analysisPayload = nil
	o.failureMessage = ""
	o.record = nil
	if record != nil && o.store != nil {
		record.State = reason
		snapshot := *record
		go o.persistRecord(&snapshot)
	}
}

// Snapshot returns a copy of the externally visible state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:          o.state,
		FailureMessage: o.failureMessage,
	}
	if o.job != nil {
		jobCopy := *o.job
		snap.Job = &jobCopy
	}
	if o.waveform != nil {
		waveformCopy := *o.waveform
		snap.Waveform = &waveformCopy
	}
	if len(o.analysisPayload) > 0 {
		snap.Analysis = append(json.RawMessage(nil), o.analysisPayload...)
	}
	return snap
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// failOrCanceled marks the job failed unless the failure belongs to a stale
// generation or the loop stopped because the caller canceled.
func (o *Orchestrator) failOrCanceled(ctx context.Context, gen uint64, err error) error {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		o.mu.Lock()
		if gen == o.generation {
			o.cancelActiveLocked("canceled")
		}
		o.mu.Unlock()
		return context.Canceled
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return context.Canceled
	}
	if CanTransition(o.state, StateFailed) {
		o.state = StateFailed
		o.failureMessage = services.UserMessage(err)
	}
	message := o.failureMessage
	o.mu.Unlock()

	o.recordState(StateFailed, message)
	o.logger.Error("job failed", logging.Error(err))
	return err
}

func (o *Orchestrator) recordSubmit(job *Job) {
	if o.store == nil {
		return
	}
	record, err := o.store.NewJob(context.Background(), job.ID, job.SourceURL, job.VideoID)
	if err != nil {
		o.logger.Warn("record job submission failed", logging.Error(err))
		return
	}
	o.mu.Lock()
	o.record = record
	o.mu.Unlock()
}

func (o *Orchestrator) recordState(state State, errorMessage string) {
	o.mutateRecord(func(record *history.Record) {
		record.State = string(state)
		record.ErrorMessage = errorMessage
	})
}

func (o *Orchestrator) recordSegment(segment Segment) {
	o.mutateRecord(func(record *history.Record) {
		record.SegmentStart = segment.Start
		record.SegmentEnd = segment.End
		record.HasSegment = true
	})
}

func (o *Orchestrator) recordAnalyzed(payload json.RawMessage) {
	o.mutateRecord(func(record *history.Record) {
		record.State = string(StateAnalyzed)
		record.AnalysisJSON = string(payload)
	})
}

// mutateRecord applies fn to the active record under the orchestrator lock
// and persists a copy, so ledger writes never race with a concurrent cancel
// mutating the same record.
func (o *Orchestrator) mutateRecord(fn func(*history.Record)) {
	if o.store == nil {
		return
	}
	o.mu.Lock()
	if o.record == nil {
		o.mu.Unlock()
		return
	}
	fn(o.record)
	snapshot := *o.record
	o.mu.Unlock()
	o.persistRecord(&snapshot)
}

func (o *Orchestrator) persistRecord(record *history.Record) {
	if err := o.store.Update(context.Background(), record); err != nil {
		o.logger.Warn("persist job history failed", logging.Error(err))
	}
}
