package config

const (
	defaultStateDir              = "~/.local/share/chordscout"
	defaultLogDir                = "~/.local/share/chordscout/logs"
	defaultServiceBaseURL        = "http://127.0.0.1:5000/api/analysis"
	defaultRequestTimeout        = 15
	defaultStatusInterval        = 2
	defaultStatusMaxAttempts     = 150
	defaultResultInterval        = 2
	defaultResultMaxAttempts     = 150
	defaultTransportFailureLimit = 5
	defaultWakeTimeout           = 60
	defaultWakeProbeInterval     = 3
	defaultWakeProbeAttempts     = 5
	defaultCloudRefreshInterval  = 45
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Service: Service{
			BaseURL:        defaultServiceBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Polling: Polling{
			StatusInterval:        defaultStatusInterval,
			StatusMaxAttempts:     defaultStatusMaxAttempts,
			ResultInterval:        defaultResultInterval,
			ResultMaxAttempts:     defaultResultMaxAttempts,
			TransportFailureLimit: defaultTransportFailureLimit,
		},
		Cloud: Cloud{
			WakeTimeout:       defaultWakeTimeout,
			WakeProbeInterval: defaultWakeProbeInterval,
			WakeProbeAttempts: defaultWakeProbeAttempts,
			RefreshInterval:   defaultCloudRefreshInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
