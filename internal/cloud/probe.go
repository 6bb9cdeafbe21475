package cloud

import (
	"context"
	"log/slog"
	"time"

	"chordscout/internal/analysis"
	"chordscout/internal/config"
	"chordscout/internal/logging"
	"chordscout/internal/services"
)

// KnownServices is the fixed set of cloud backends the analysis service may
// report on. A degraded report covers all of them so callers always see the
// full set regardless of what the probe returned.
var KnownServices = []string{"spleeter", "demucs", "colab", "render", "huggingface"}

// Report is one capability snapshot. Degraded reports carry the probe error
// that forced the synthesis.
type Report struct {
	Services   analysis.CloudStatus
	Degraded   bool
	ProbeError string
	CheckedAt  time.Time
}

// AnyHealthy reports whether at least one enabled service is healthy.
func (r Report) AnyHealthy() bool {
	for _, status := range r.Services {
		if status.Enabled && status.Healthy {
			return true
		}
	}
	return false
}

// WakeOutcome summarizes a wake attempt plus the re-probe that followed it.
type WakeOutcome struct {
	Requested bool
	Woken     bool
	Message   string
	Report    Report
}

// StatusClient is the analysis client surface the probe needs.
type StatusClient interface {
	CloudServiceStatus(ctx context.Context) (analysis.CloudStatus, error)
	Wake(ctx context.Context) (*analysis.WakeResult, error)
}

// Probe checks and wakes the advisory cloud capability layer. Probe failures
// degrade the report; they are never escalated to the caller, because cloud
// features are optional and the core pipeline works without them.
type Probe struct {
	client            StatusClient
	logger            *slog.Logger
	wakeProbeInterval time.Duration
	wakeProbeAttempts int
}

// ProbeSettings carries the wake re-probe budget.
type ProbeSettings struct {
	WakeProbeInterval time.Duration
	WakeProbeAttempts int
}

// ProbeSettingsFromConfig derives probe settings from application config.
func ProbeSettingsFromConfig(cfg *config.Config) ProbeSettings {
	return ProbeSettings{
		WakeProbeInterval: time.Duration(cfg.Cloud.WakeProbeInterval) * time.Second,
		WakeProbeAttempts: cfg.Cloud.WakeProbeAttempts,
	}
}

// NewProbe constructs a capability probe.
func NewProbe(client StatusClient, settings ProbeSettings, logger *slog.Logger) *Probe {
	if settings.WakeProbeInterval <= 0 {
		settings.WakeProbeInterval = 3 * time.Second
	}
	if settings.WakeProbeAttempts <= 0 {
		settings.WakeProbeAttempts = 5
	}
	return &Probe{
		client:            client,
		logger:            logging.NewComponentLogger(logger, "cloud"),
		wakeProbeInterval: settings.WakeProbeInterval,
		wakeProbeAttempts: settings.WakeProbeAttempts,
	}
}

// Status fetches the capability report with a single request and no retry.
// Any failure yields a degraded report marking every known service down.
func (p *Probe) Status(ctx context.Context) Report {
	status, err := p.client.CloudServiceStatus(ctx)
	if err != nil {
		p.logger.Debug("cloud status probe failed", logging.Error(err))
		return degradedReport(err)
	}
	// Fill in any known service the report omitted so callers always see
	// the complete set.
	for _, name := range KnownServices {
		if _, ok := status[name]; !ok {
			status[name] = analysis.ServiceStatus{}
		}
	}
	return Report{Services: status, CheckedAt: time.Now().UTC()}
}

// Wake requests a wake of hibernating backends. Transport and service
// failures downgrade to a still-hibernating outcome.
func (p *Probe) Wake(ctx context.Context) WakeOutcome {
	result, err := p.client.Wake(ctx)
	if err != nil {
		p.logger.Warn("wake request failed", logging.Error(err))
		return WakeOutcome{
			Requested: true,
			Message:   services.UserMessage(err),
			Report:    degradedReport(err),
		}
	}
	outcome := WakeOutcome{
		Requested: true,
		Woken:     result.Woken(),
		Message:   result.Message,
	}
	if outcome.Message == "" && !outcome.Woken {
		outcome.Message = "cloud services are still hibernating"
	}
	return outcome
}

// WakeAndAwait wakes the backends and then re-probes capability on a fixed
// bounded schedule, returning early once any service reports healthy. The
// re-probe budget guarantees termination; when it runs out the final report
// records the still-hibernating state.
func (p *Probe) WakeAndAwait(ctx context.Context) WakeOutcome {
	outcome := p.Wake(ctx)

	ticker := time.NewTicker(p.wakeProbeInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.wakeProbeAttempts; attempt++ {
		select {
		case <-ctx.Done():
			outcome.Report = degradedReport(ctx.Err())
			return outcome
		case <-ticker.C:
		}
		report := p.Status(ctx)
		outcome.Report = report
		if report.AnyHealthy() {
			outcome.Woken = true
			outcome.Message = "cloud services are awake"
			p.logger.Info("cloud services healthy", logging.Int("probe_attempts", attempt))
			return outcome
		}
		p.logger.Debug("cloud services not yet healthy",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", p.wakeProbeAttempts),
		)
	}
	if !outcome.Woken {
		outcome.Message = "cloud services did not become healthy in time"
	}
	return outcome
}

func degradedReport(err error) Report {
	statuses := make(analysis.CloudStatus, len(KnownServices))
	message := ""
	if err != nil {
		message = err.Error()
	}
	for _, name := range KnownServices {
		statuses[name] = analysis.ServiceStatus{Enabled: false, Healthy: false, Error: message}
	}
	return Report{
		Services:   statuses,
		Degraded:   true,
		ProbeError: message,
		CheckedAt:  time.Now().UTC(),
	}
}
