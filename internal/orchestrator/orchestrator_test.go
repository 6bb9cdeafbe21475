package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"chordscout/internal/analysis"
	"chordscout/internal/logging"
	"chordscout/internal/services"
	"chordscout/internal/testsupport"
)

type fakeClient struct {
	mu sync.Mutex

	ingestErr     error
	ingestJobID   string
	statusQueue   []statusReply
	statusCalls   int
	analyzeErr    error
	analyzeCalled bool
	resultQueue   []resultReply
	resultCalls   int

	lastStart float64
	lastEnd   float64
	lastOpts  analysis.AnalyzeOptions
}

type statusReply struct {
	status *analysis.JobStatus
	err    error
}

type resultReply struct {
	result *analysis.AnalysisResult
	err    error
}

func (f *fakeClient) Ingest(ctx context.Context, sourceURL string, consent bool) (*analysis.IngestAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	jobID := f.ingestJobID
	if jobID == "" {
		jobID = "job-1"
	}
	return &analysis.IngestAck{JobID: jobID, Status: analysis.StatusProcessing}, nil
}

func (f *fakeClient) Status(ctx context.Context, jobID string) (*analysis.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusQueue) == 0 {
		return &analysis.JobStatus{JobID: jobID, Status: analysis.StatusProcessing}, nil
	}
	reply := f.statusQueue[0]
	if len(f.statusQueue) > 1 {
		f.statusQueue = f.statusQueue[1:]
	}
	return reply.status, reply.err
}

func (f *fakeClient) StartAnalysis(ctx context.Context, jobID string, start, end float64, opts analysis.AnalyzeOptions) (*analysis.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalled = true
	f.lastStart = start
	f.lastEnd = end
	f.lastOpts = opts
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &analysis.AnalysisResult{JobID: jobID, Status: analysis.StatusAnalyzing}, nil
}

func (f *fakeClient) Result(ctx context.Context, jobID string) (*analysis.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if len(f.resultQueue) == 0 {
		return &analysis.AnalysisResult{JobID: jobID, Status: analysis.StatusAnalyzing}, nil
	}
	reply := f.resultQueue[0]
	if len(f.resultQueue) > 1 {
		f.resultQueue = f.resultQueue[1:]
	}
	return reply.result, reply.err
}

func fastSettings() Settings {
	return Settings{
		StatusInterval:        5 * time.Millisecond,
		StatusMaxAttempts:     10,
		ResultInterval:        5 * time.Millisecond,
		ResultMaxAttempts:     10,
		TransportFailureLimit: 3,
	}
}

func readyStatus(jobID string, duration float64) *analysis.JobStatus {
	return &analysis.JobStatus{
		JobID:  jobID,
		Status: analysis.StatusCompleted,
		Waveform: &analysis.WaveformData{
			Peaks:      []float64{0.1, 0.9, 0.4},
			Duration:   duration,
			SampleRate: 22050,
		},
	}
}

func TestSubmitRejectsUnrecognizedURL(t *testing.T) {
	client := &fakeClient{ingestErr: errors.New("must not be called")}
	o := New(client, fastSettings(), logging.NewNop())

	_, err := o.Submit(context.Background(), "https://example.com/watch?v=abc123")
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if o.State() != StateIdle {
		t.Fatalf("state = %s, want idle", o.State())
	}
}

func TestSubmitWaitsForWaveform(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusProcessing}},
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusCompleted}},
			{status: readyStatus("job-1", 3.0)},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())

	waveform, err := o.Submit(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if waveform.Duration != 3.0 {
		t.Fatalf("waveform duration = %v, want 3.0", waveform.Duration)
	}
	if o.State() != StateReady {
		t.Fatalf("state = %s, want ready", o.State())
	}
	if client.statusCalls < 3 {
		t.Fatalf("statusCalls = %d, want at least 3", client.statusCalls)
	}
	snap := o.Snapshot()
	if snap.Job == nil || snap.Job.ID != "job-1" {
		t.Fatalf("snapshot job = %+v", snap.Job)
	}
	if snap.Job.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("video id = %q", snap.Job.VideoID)
	}
}

func TestSubmitCompletedWithoutWaveformKeepsPolling(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusCompleted}},
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusCompleted}},
			{status: readyStatus("job-1", 2.0)},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())

	waveform, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(waveform.Peaks) != 3 {
		t.Fatalf("peaks = %v", waveform.Peaks)
	}
}

func TestSubmitFailedJob(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusFailed, Error: "download blocked"}},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())

	_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	snap := o.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
	if snap.FailureMessage == "" {
		t.Fatal("expected failure message to be recorded")
	}
}

func TestSubmitTransportFailuresExhaustBudget(t *testing.T) {
	transportErr := services.Wrap(services.ErrTransport, "analysis", "status", "connection refused", nil)
	client := &fakeClient{
		statusQueue: []statusReply{{err: transportErr}},
	}
	o := New(client, fastSettings(), logging.NewNop())

	_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrPollingExhausted) {
		t.Fatalf("expected polling exhausted, got %v", err)
	}
	if client.statusCalls != 3 {
		t.Fatalf("statusCalls = %d, want 3 (transport failure limit)", client.statusCalls)
	}
}

func TestSubmitTransportFailureCounterResets(t *testing.T) {
	transportErr := services.Wrap(services.ErrTransport, "analysis", "status", "connection reset", nil)
	client := &fakeClient{
		statusQueue: []statusReply{
			{err: transportErr},
			{err: transportErr},
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusProcessing}},
			{err: transportErr},
			{err: transportErr},
			{status: readyStatus("job-1", 1.5)},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())

	if _, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSubmitAttemptBudgetExhausted(t *testing.T) {
	client := &fakeClient{} // forever processing
	settings := fastSettings()
	settings.StatusMaxAttempts = 4
	o := New(client, settings, logging.NewNop())

	_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrPollingExhausted) {
		t.Fatalf("expected polling exhausted, got %v", err)
	}
	if client.statusCalls != 4 {
		t.Fatalf("statusCalls = %d, want 4", client.statusCalls)
	}
}

func TestSecondSubmitWhileActiveFails(t *testing.T) {
	client := &fakeClient{} // forever processing
	o := New(client, fastSettings(), logging.NewNop())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
		done <- err
	}()
	<-started
	waitForState(t, o, StateProcessing)

	_, err := o.Submit(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	if !errors.Is(err, services.ErrJobActive) {
		t.Fatalf("expected job-active error, got %v", err)
	}

	o.Cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("first submit should observe cancellation, got %v", err)
	}
}

func TestSupersedeCancelsPriorJob(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{
			{status: &analysis.JobStatus{JobID: "job-1", Status: analysis.StatusProcessing}},
		},
	}
	o := New(client, fastSettings(), logging.NewNop(), WithSupersede())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
		done <- err
	}()
	<-started
	waitForState(t, o, StateProcessing)

	client.mu.Lock()
	client.ingestJobID = "job-2"
	client.statusQueue = []statusReply{{status: readyStatus("job-2", 2.0)}}
	client.mu.Unlock()

	waveform, err := o.Submit(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("superseding submit: %v", err)
	}
	if waveform == nil {
		t.Fatal("expected waveform from superseding submit")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("superseded submit should observe cancellation, got %v", err)
	}
	snap := o.Snapshot()
	if snap.Job == nil || snap.Job.ID != "job-2" {
		t.Fatalf("active job = %+v, want job-2", snap.Job)
	}
}

func TestCancelDiscardsLateResponses(t *testing.T) {
	release := make(chan struct{})
	client := &blockingClient{entered: make(chan struct{}, 1), release: release}
	o := New(client, fastSettings(), logging.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
		done <- err
	}()
	<-client.entered

	o.Cancel()
	if o.State() != StateIdle {
		t.Fatalf("state after cancel = %s, want idle", o.State())
	}
	close(release) // the blocked status call now returns a ready waveform

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("submit after cancel = %v, want context.Canceled", err)
	}
	// The late ready response must not resurrect the job.
	if o.State() != StateIdle {
		t.Fatalf("state = %s, want idle after late response", o.State())
	}
	if snap := o.Snapshot(); snap.Waveform != nil {
		t.Fatal("late waveform leaked into state")
	}
}

// blockingClient parks the first status call until release closes, then
// answers ready, simulating a response that lands after cancellation.
type blockingClient struct {
	fakeClient
	entered chan struct{}
	release chan struct{}
}

func (b *blockingClient) Status(ctx context.Context, jobID string) (*analysis.JobStatus, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return readyStatus(jobID, 3.0), nil
}

func TestAnalyzeHappyPath(t *testing.T) {
	payload := json.RawMessage(`{"chords":[{"time":0.5,"label":"Am"}],"key":"A minor"}`)
	client := &fakeClient{
		statusQueue: []statusReply{{status: readyStatus("job-1", 3.0)}},
		resultQueue: []resultReply{
			{result: &analysis.AnalysisResult{JobID: "job-1", Status: analysis.StatusAnalyzing}},
			{result: &analysis.AnalysisResult{JobID: "job-1", Status: analysis.StatusCompleted, Analysis: payload}},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())

	if _, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := o.Analyze(context.Background(), Segment{Start: 0.5, End: 2.5}, analysis.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload = %s, want verbatim passthrough", got)
	}
	if o.State() != StateAnalyzed {
		t.Fatalf("state = %s, want analyzed", o.State())
	}
	if client.lastStart != 0.5 || client.lastEnd != 2.5 {
		t.Fatalf("segment sent = [%v, %v]", client.lastStart, client.lastEnd)
	}
}

func TestAnalyzeRejectsInvalidSegment(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{{status: readyStatus("job-1", 3.0)}},
	}
	o := New(client, fastSettings(), logging.NewNop())
	if _, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	cases := []Segment{
		{Start: -1, End: 2},
		{Start: 2, End: 2},
		{Start: 3, End: 1},
	}
	for _, segment := range cases {
		if _, err := o.Analyze(context.Background(), segment, analysis.AnalyzeOptions{}); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("segment %+v: expected invalid input, got %v", segment, err)
		}
	}
	if client.analyzeCalled {
		t.Fatal("invalid segments must not reach the service")
	}
	if o.State() != StateReady {
		t.Fatalf("state = %s, want ready after rejected segments", o.State())
	}
}

func TestAnalyzeRejectsSegmentBeyondDuration(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{{status: readyStatus("job-1", 3.0)}},
	}
	o := New(client, fastSettings(), logging.NewNop())
	if _, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := o.Analyze(context.Background(), Segment{Start: 1, End: 10}, analysis.AnalyzeOptions{})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input for segment past audio end, got %v", err)
	}
}

func TestAnalyzeWithoutSubmit(t *testing.T) {
	o := New(&fakeClient{}, fastSettings(), logging.NewNop())
	_, err := o.Analyze(context.Background(), Segment{Start: 0, End: 2}, analysis.AnalyzeOptions{})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnalyzeFailureIsRecoverable(t *testing.T) {
	client := &fakeClient{
		statusQueue: []statusReply{{status: readyStatus("job-1", 3.0)}},
		resultQueue: []resultReply{
			{result: &analysis.AnalysisResult{JobID: "job-1", Status: analysis.StatusFailed, Message: "segment too noisy"}},
		},
	}
	o := New(client, fastSettings(), logging.NewNop())
	if _, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := o.Analyze(context.Background(), Segment{Start: 0.5, End: 2.5}, analysis.AnalyzeOptions{})
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	if o.State() != StateFailed {
		t.Fatalf("state = %s, want failed", o.State())
	}
}

func TestCancelPersistsCanceledRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := &fakeClient{} // forever processing
	settings := fastSettings()
	settings.StatusMaxAttempts = 10000
	o := New(client, settings, logging.NewNop(), WithHistory(store))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
		done <- err
	}()

	// Wait for the ledger entry, then cancel while polling is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		record, err := store.GetByJobID(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("GetByJobID: %v", err)
		}
		if record != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ledger entry never appeared")
		}
		time.Sleep(time.Millisecond)
	}

	o.Cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("submit after cancel = %v, want context.Canceled", err)
	}

	// The canceled state is written from a detached goroutine; poll for it.
	deadline = time.Now().Add(2 * time.Second)
	for {
		record, err := store.GetByJobID(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("GetByJobID: %v", err)
		}
		if record != nil && record.State == "canceled" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("record state = %q, want canceled", record.State)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	o := New(&fakeClient{}, fastSettings(), logging.NewNop())
	o.Cancel()
	if o.State() != StateIdle {
		t.Fatalf("state = %s, want idle", o.State())
	}
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never reached %s (currently %s)", want, o.State())
}
