package analysis_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chordscout/internal/analysis"
	"chordscout/internal/services"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := analysis.New("  "); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestIngestNormalizesSnakeCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ingest" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"J1","status":"processing","message":"started"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ack, err := client.Ingest(context.Background(), "https://www.youtube.com/watch?v=abc123", true)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if ack.JobID != "J1" || ack.Status != "processing" {
		t.Fatalf("unexpected ack: %#v", ack)
	}
}

func TestIngestNormalizesCamelCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobId":"J2","status":"processing"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ack, err := client.Ingest(context.Background(), "https://youtu.be/abc123xyz", true)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if ack.JobID != "J2" {
		t.Fatalf("expected camelCase job id normalized, got %#v", ack)
	}
}

func TestIngestMissingJobIDIsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Ingest(context.Background(), "https://youtu.be/abc123xyz", true); !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error for missing job id, got %v", err)
	}
}

func TestIngestRejectionIsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"yt-dlp unavailable"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Ingest(context.Background(), "https://youtu.be/abc123xyz", true); !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error for 500, got %v", err)
	}
}

func TestIngestTransportFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Ingest(context.Background(), "https://youtu.be/abc123xyz", true); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestStatusParsesWaveform(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/J1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"job_id":"J1","status":"completed","waveform_data":{"peaks":[0.1,0.5,0.2],"duration":3.0,"sample_rate":44100}}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	status, err := client.Status(context.Background(), "J1")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Waveform == nil {
		t.Fatal("expected waveform payload")
	}
	if len(status.Waveform.Peaks) != 3 || status.Waveform.Duration != 3.0 || status.Waveform.SampleRate != 44100 {
		t.Fatalf("unexpected waveform: %#v", status.Waveform)
	}
}

func TestStatusParsesCamelCaseWaveform(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobId":"J1","status":"ready","waveformData":{"peaks":[0.3],"durationSeconds":1.5,"sampleRate":22050}}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	status, err := client.Status(context.Background(), "J1")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Waveform == nil || status.Waveform.Duration != 1.5 || status.Waveform.SampleRate != 22050 {
		t.Fatalf("unexpected waveform: %#v", status.Waveform)
	}
}

func TestStartAnalysisSendsCamelCaseBody(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		decodeJSONBody(t, r, &captured)
		_, _ = w.Write([]byte(`{"job_id":"J1","status":"analyzing","message":"Musical analysis started"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	opts := analysis.AnalyzeOptions{
		EnableCloudServices: true,
		CloudOptions:        analysis.CloudOptions{SourceSeparation: true},
	}
	ack, err := client.StartAnalysis(context.Background(), "J1", 0.5, 2.5, opts)
	if err != nil {
		t.Fatalf("StartAnalysis returned error: %v", err)
	}
	if ack.Status != "analyzing" {
		t.Fatalf("unexpected ack: %#v", ack)
	}
	if captured["jobId"] != "J1" || captured["startTime"] != 0.5 || captured["endTime"] != 2.5 {
		t.Fatalf("unexpected request body: %#v", captured)
	}
	if captured["enableCloudServices"] != true {
		t.Fatalf("expected cloud flag in body: %#v", captured)
	}
}

func TestResultReturnsOpaqueAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analysis/J1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"job_id":"J1","status":"completed","analysis":{"key":"C","tempo":120}}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := client.Result(context.Background(), "J1")
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	if !result.HasAnalysis() {
		t.Fatal("expected analysis payload present")
	}
	if string(result.Analysis) != `{"key":"C","tempo":120}` {
		t.Fatalf("analysis payload not passed through verbatim: %s", result.Analysis)
	}
}

func TestSeparateTracksFailureCarriesServiceMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"space is hibernating"}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.SeparateTracks(context.Background(), "J1", "https://example.com/audio.wav", analysis.ModelDemucs)
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestSeparateTracksRejectsUnknownModel(t *testing.T) {
	client, err := analysis.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.SeparateTracks(context.Background(), "J1", "https://example.com/a.wav", "phase-vocoder")
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestWakeUsesExtendedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wake-spaces" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"services":{"spleeter":true,"demucs":false}}`))
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL, analysis.WithWakeHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := client.Wake(context.Background())
	if err != nil {
		t.Fatalf("Wake returned error: %v", err)
	}
	if !result.Success || !result.Woken() {
		t.Fatalf("unexpected wake result: %#v", result)
	}
}

func TestWakeServiceUnavailableMeansStillWaking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := analysis.New(server.URL, analysis.WithWakeHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := client.Wake(context.Background())
	if err != nil {
		t.Fatalf("a 503 while waking is not an error, got %v", err)
	}
	if result.Success || result.Woken() {
		t.Fatalf("unexpected wake result: %#v", result)
	}
	if result.Message == "" {
		t.Fatal("expected a still-waking message")
	}
}
