package config

const (
	defaultDataDir              = "~/.local/share/fabline"
	defaultLogDir               = "~/.local/share/fabline/logs"
	defaultAPIBind              = "127.0.0.1:7519"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultReminderPollInterval = 60
	defaultReminderHour         = 9
	defaultEventBufferSize      = 512
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			ReminderPollInterval: defaultReminderPollInterval,
			ReminderHour:         defaultReminderHour,
			EventBufferSize:      defaultEventBufferSize,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Rework:         true,
			QC:             true,
			Returns:        true,
			Dispatch:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
