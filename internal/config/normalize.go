package config

import (
	"strings"
)

// normalize expands path fields and fills unset values with defaults.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(valueOr(c.Paths.DataDir, defaultDataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(valueOr(c.Paths.LogDir, defaultLogDir)); err != nil {
		return err
	}
	if c.Client.PrefsPath, err = expandPath(valueOr(c.Client.PrefsPath, defaultPrefsPath)); err != nil {
		return err
	}

	c.Paths.APIBind = valueOr(c.Paths.APIBind, defaultAPIBind)
	c.Client.APIURL = strings.TrimRight(valueOr(c.Client.APIURL, defaultAPIURL), "/")
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = defaultClientRequestTimeout
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.DefaultDuration <= 0 {
		c.Notifications.DefaultDuration = defaultNotifyDurationMillis
	}
	c.Logging.Format = strings.ToLower(valueOr(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(valueOr(c.Logging.Level, defaultLogLevel))
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
