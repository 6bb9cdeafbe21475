package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chordscout/internal/services"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultWakeTimeout    = 60 * time.Second

	maxErrorBodyBytes = 4 << 10
)

// SeparationModel names a supported source-separation backend.
type SeparationModel string

const (
	ModelDemucs   SeparationModel = "demucs"
	ModelSpleeter SeparationModel = "spleeter"
)

// Client talks to the remote music-analysis service. It is the single
// normalization boundary for the service's mixed snake_case/camelCase field
// conventions; everything past this package sees one canonical shape.
type Client struct {
	baseURL    string
	httpClient *http.Client
	wakeClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client used for standard calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithWakeHTTPClient overrides the extended-timeout client used for wake calls.
func WithWakeHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.wakeClient = client
		}
	}
}

// WithRequestTimeout sets the timeout for standard calls.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithWakeTimeout sets the timeout for wake calls. Wake targets may be
// cold-starting, so this is expected to be much longer than the standard
// request timeout.
func WithWakeTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.wakeClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates an analysis service client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("analysis base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		wakeClient: &http.Client{Timeout: defaultWakeTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Ingest starts audio extraction for a media URL. The ingest endpoint speaks
// snake_case; URL validation is the caller's responsibility.
func (c *Client) Ingest(ctx context.Context, sourceURL string, consent bool) (*IngestAck, error) {
	body := map[string]any{
		"youtube_url":  sourceURL,
		"user_consent": consent,
	}
	var ack IngestAck
	if err := c.post(ctx, "/ingest", body, &ack, c.httpClient); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ack.JobID) == "" {
		return nil, services.Wrap(services.ErrService, "analysis", "ingest", "response missing job id", nil)
	}
	return &ack, nil
}

// Status fetches the extraction status for a job.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "status", "job id required", nil)
	}
	var status JobStatus
	if err := c.get(ctx, "/status/"+jobID, &status, c.httpClient); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartAnalysis triggers segment analysis for a ready job. The analyze
// endpoint speaks camelCase, unlike ingest; that mismatch is the service's,
// not ours.
func (c *Client) StartAnalysis(ctx context.Context, jobID string, startSeconds, endSeconds float64, opts AnalyzeOptions) (*AnalysisResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "analyze", "job id required", nil)
	}
	body := map[string]any{
		"jobId":     jobID,
		"startTime": startSeconds,
		"endTime":   endSeconds,
	}
	if opts.AnalysisVersion != "" {
		body["analysisVersion"] = opts.AnalysisVersion
	}
	if opts.EnableCloudServices {
		body["enableCloudServices"] = true
		body["cloudOptions"] = opts.CloudOptions
	}
	var ack AnalysisResult
	if err := c.post(ctx, "/analyze", body, &ack, c.httpClient); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Result fetches the analysis outcome for a job.
func (c *Client) Result(ctx context.Context, jobID string) (*AnalysisResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "result", "job id required", nil)
	}
	var result AnalysisResult
	if err := c.get(ctx, "/analysis/"+jobID, &result, c.httpClient); err != nil {
		return nil, err
	}
	return &result, nil
}

// CloudServiceStatus fetches the advisory cloud capability report. Callers
// are expected to downgrade failures rather than propagate them.
func (c *Client) CloudServiceStatus(ctx context.Context) (CloudStatus, error) {
	var status CloudStatus
	if err := c.get(ctx, "/cloud-status", &status, c.httpClient); err != nil {
		return nil, err
	}
	return status, nil
}

// Wake asks the service to wake its hibernating cloud backends. The call uses
// the extended-timeout client; a slow response is expected, not a failure. A
// 503 means the backends are still spinning up and is reported as a
// not-yet-woken result rather than an error.
func (c *Client) Wake(ctx context.Context) (*WakeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wake-spaces", strings.NewReader("{}"))
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "wake", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	requestStart := time.Now()
	resp, err := c.wakeClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "analysis", "wake", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return &WakeResult{Success: false, Message: "services are still waking up"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		detail := fmt.Sprintf("http %d (latency=%v)", resp.StatusCode, latency)
		if trimmed := strings.TrimSpace(string(snippet)); trimmed != "" {
			detail += ": " + trimmed
		}
		return nil, services.Wrap(services.ErrService, "analysis", "wake", detail, nil)
	}

	var result WakeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, services.Wrap(services.ErrService, "analysis", "wake", "decode response", err)
	}
	return &result, nil
}

// SeparateTracks requests stem separation for an analyzed job's audio.
func (c *Client) SeparateTracks(ctx context.Context, jobID, audioURL string, model SeparationModel) (*SeparationResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "separate", "job id required", nil)
	}
	switch model {
	case ModelDemucs, ModelSpleeter:
	default:
		return nil, services.Wrap(services.ErrInvalidInput, "analysis", "separate", fmt.Sprintf("unsupported model %q", model), nil)
	}
	body := map[string]any{
		"jobId":    jobID,
		"audioUrl": audioURL,
		"model":    model,
	}
	var result SeparationResult
	if err := c.post(ctx, "/separate-tracks", body, &result, c.httpClient); err != nil {
		return nil, err
	}
	if !result.Success {
		message := strings.TrimSpace(result.Error)
		if message == "" {
			message = "separation failed"
		}
		return nil, services.Wrap(services.ErrService, "analysis", "separate", message, nil)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, out any, httpClient *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, "analysis", "request", "build request", err)
	}
	return c.do(req, path, out, httpClient)
}

func (c *Client) post(ctx context.Context, path string, body any, out any, httpClient *http.Client) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, "analysis", "request", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, "analysis", "request", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out, httpClient)
}

func (c *Client) do(req *http.Request, path string, out any, httpClient *http.Client) error {
	requestStart := time.Now()
	resp, err := httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransport, "analysis", path, fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		detail := fmt.Sprintf("http %d (latency=%v)", resp.StatusCode, latency)
		if trimmed := strings.TrimSpace(string(snippet)); trimmed != "" {
			detail += ": " + trimmed
		}
		return services.Wrap(services.ErrService, "analysis", path, detail, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrService, "analysis", path, "decode response", err)
	}
	return nil
}
