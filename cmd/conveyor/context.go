package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"conveyor/internal/client"
	"conveyor/internal/config"
	"conveyor/internal/logging"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
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
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// cliLogger writes console-formatted logs to stderr so command output on
// stdout stays clean. Verbose mode lowers the threshold to debug.
func (c *commandContext) cliLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		level := "warn"
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		logger, err := logging.New(logging.Options{
			Level:       level,
			Format:      "console",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) apiClient() *client.Client {
	return client.New(c.configValue(), c.cliLogger())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
