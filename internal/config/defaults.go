package config

const (
	defaultDataDir              = "~/.local/share/conveyor"
	defaultLogDir               = "~/.local/share/conveyor/logs"
	defaultAPIBind              = "127.0.0.1:7419"
	defaultAPIURL               = "http://127.0.0.1:7419"
	defaultClientRequestTimeout = 30
	defaultPrefsPath            = "~/.local/share/conveyor/prefs.json"
	defaultNotifyRequestTimeout = 10
	defaultNotifyDurationMillis = 5000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Client: Client{
			APIURL:         defaultAPIURL,
			RequestTimeout: defaultClientRequestTimeout,
			PrefsPath:      defaultPrefsPath,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			DefaultDuration: defaultNotifyDurationMillis,
			Pipeline:        true,
			Steps:           true,
			Errors:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
