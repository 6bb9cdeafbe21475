package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chordscout/internal/analysis"
	"chordscout/internal/logging"
	"chordscout/internal/services"
)

// pollUntilReady polls job status until the waveform arrives. A "completed"
// status with a null waveform keeps polling; a missing payload is treated the
// same as a job that has not finished yet.
func (o *Orchestrator) pollUntilReady(ctx context.Context, logger *slog.Logger, jobID string) (*analysis.WaveformData, error) {
	var waveform *analysis.WaveformData
	err := o.pollLoop(ctx, logger, "wait-ready", o.settings.StatusInterval, o.settings.StatusMaxAttempts, func(ctx context.Context) (bool, error) {
		status, err := o.client.Status(ctx, jobID)
		if err != nil {
			return false, err
		}
		switch status.Status {
		case analysis.StatusFailed:
			message := status.Error
			if message == "" {
				message = "processing failed"
			}
			return false, services.Wrap(services.ErrService, "orchestrator", "wait-ready", message, nil)
		case analysis.StatusReady, analysis.StatusCompleted:
			if status.Waveform == nil {
				logger.Debug("status is complete but waveform not yet attached")
				return false, nil
			}
			waveform = status.Waveform
			return true, nil
		default:
			logger.Debug("job still processing", logging.String("status", status.Status))
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return waveform, nil
}

// pollUntilAnalyzed polls the analysis result until the payload arrives.
func (o *Orchestrator) pollUntilAnalyzed(ctx context.Context, logger *slog.Logger, jobID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := o.pollLoop(ctx, logger, "wait-analyzed", o.settings.ResultInterval, o.settings.ResultMaxAttempts, func(ctx context.Context) (bool, error) {
		result, err := o.client.Result(ctx, jobID)
		if err != nil {
			return false, err
		}
		switch result.Status {
		case analysis.StatusFailed:
			message := result.Message
			if message == "" {
				message = "analysis failed"
			}
			return false, services.Wrap(services.ErrService, "orchestrator", "wait-analyzed", message, nil)
		case analysis.StatusCompleted:
			if !result.HasAnalysis() {
				logger.Debug("result is complete but analysis not yet attached")
				return false, nil
			}
			payload = result.Analysis
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// pollLoop runs check immediately, then on every interval tick, until check
// reports done, the attempt budget runs out, or ctx is canceled. Transport
// errors are tolerated up to the consecutive failure limit; a service error
// stops the loop at once.
func (o *Orchestrator) pollLoop(ctx context.Context, logger *slog.Logger, operation string, interval time.Duration, maxAttempts int, check func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	transportFailures := 0
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, services.ErrTransport) {
				return err
			}
			transportFailures++
			logger.Warn("status poll failed",
				logging.Int("attempt", attempt),
				logging.Int("consecutive_failures", transportFailures),
				logging.Error(err),
			)
			if transportFailures >= o.settings.TransportFailureLimit {
				msg := fmt.Sprintf("%d consecutive transport failures while polling", transportFailures)
				return services.Wrap(services.ErrPollingExhausted, "orchestrator", operation, msg, err)
			}
		} else {
			transportFailures = 0
			if done {
				return nil
			}
		}
		if attempt >= maxAttempts {
			msg := fmt.Sprintf("no result after %d polls (%s elapsed)", attempt, time.Duration(attempt)*interval)
			return services.Wrap(services.ErrPollingExhausted, "orchestrator", operation, msg, nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
