package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks local validation failures; no network call was made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport marks requests that could not complete (timeout, DNS, reset).
	ErrTransport = errors.New("transport failure")
	// ErrService marks explicit failure responses from the analysis service.
	ErrService = errors.New("service failure")
	// ErrPollingExhausted marks a consumed retry budget without a terminal state.
	ErrPollingExhausted = errors.New("polling exhausted")
	// ErrJobActive marks an attempt to submit while another job is still active.
	ErrJobActive = errors.New("job already active")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage maps a pipeline error to the actionable message surfaced to
// callers alongside a failed job.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "request rejected before contacting the analysis service"
	case errors.Is(err, ErrPollingExhausted):
		return "analysis timed out waiting for the service"
	case errors.Is(err, ErrTransport):
		return "could not reach the analysis service"
	case errors.Is(err, ErrService):
		return "analysis service rejected the request"
	default:
		return err.Error()
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
