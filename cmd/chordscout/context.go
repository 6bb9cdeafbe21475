package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chordscout/internal/analysis"
	"chordscout/internal/cloud"
	"chordscout/internal/config"
	"chordscout/internal/history"
	"chordscout/internal/logging"
	"chordscout/internal/orchestrator"
	"chordscout/internal/runlock"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) newClient() (*analysis.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return analysis.New(cfg.Service.BaseURL,
		analysis.WithRequestTimeout(time.Duration(cfg.Service.RequestTimeout)*time.Second),
		analysis.WithWakeTimeout(time.Duration(cfg.Cloud.WakeTimeout)*time.Second),
	)
}

// newOrchestrator wires the client, logger, and history store together. The
// returned cleanup closes the store.
func (c *commandContext) newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.newClient()
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	orch := orchestrator.New(client, orchestrator.SettingsFromConfig(cfg), logger,
		orchestrator.WithHistory(store),
	)
	cleanup := func() { _ = store.Close() }
	return orch, cleanup, nil
}

func (c *commandContext) newProbe() (*cloud.Probe, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := c.newClient()
	if err != nil {
		return nil, err
	}
	return cloud.NewProbe(client, cloud.ProbeSettingsFromConfig(cfg), logger), nil
}

// acquireRunLock guards polling commands against a second concurrent
// chordscout process. The returned release is safe to defer.
func (c *commandContext) acquireRunLock() (func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock, err := runlock.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := lock.Acquire(); err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", lock.Path(), err)
	}
	return func() { _ = lock.Release() }, nil
}
