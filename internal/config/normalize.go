package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizePolling()
	c.normalizeCloud()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.BaseURL = strings.TrimSpace(c.Service.BaseURL)
	if c.Service.BaseURL == "" {
		if value, ok := os.LookupEnv("CHORDSCOUT_SERVICE_URL"); ok {
			c.Service.BaseURL = strings.TrimSpace(value)
		}
	}
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultServiceBaseURL
	}
	c.Service.BaseURL = strings.TrimRight(c.Service.BaseURL, "/")
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizePolling() {
	if c.Polling.StatusInterval <= 0 {
		c.Polling.StatusInterval = defaultStatusInterval
	}
	if c.Polling.StatusMaxAttempts <= 0 {
		c.Polling.StatusMaxAttempts = defaultStatusMaxAttempts
	}
	if c.Polling.ResultInterval <= 0 {
		c.Polling.ResultInterval = defaultResultInterval
	}
	if c.Polling.ResultMaxAttempts <= 0 {
		c.Polling.ResultMaxAttempts = defaultResultMaxAttempts
	}
	if c.Polling.TransportFailureLimit <= 0 {
		c.Polling.TransportFailureLimit = defaultTransportFailureLimit
	}
}

func (c *Config) normalizeCloud() {
	if c.Cloud.WakeTimeout <= 0 {
		c.Cloud.WakeTimeout = defaultWakeTimeout
	}
	if c.Cloud.WakeProbeInterval <= 0 {
		c.Cloud.WakeProbeInterval = defaultWakeProbeInterval
	}
	if c.Cloud.WakeProbeAttempts <= 0 {
		c.Cloud.WakeProbeAttempts = defaultWakeProbeAttempts
	}
	if c.Cloud.RefreshInterval <= 0 {
		c.Cloud.RefreshInterval = defaultCloudRefreshInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
