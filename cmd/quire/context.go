package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"quire/internal/config"
	"quire/internal/logging"
	"quire/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	// workflowOptions are appended to every build runner; tests use them to
	// swap the tool executor.
	workflowOptions []workflow.Option
}

func newCommandContext(configFlag, logLevelFlag *string, opts ...workflow.Option) *commandContext {
	return &commandContext{
		configFlag:      configFlag,
		logLevelFlag:    logLevelFlag,
		workflowOptions: opts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		c.configPath = resolved
		c.configSeen = exists
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

// optionalConfig returns the project config when one loads cleanly. Path
// based commands use it for defaults only.
func (c *commandContext) optionalConfig() *config.Config {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	return cfg
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// logger builds the run logger from configuration. A nil cfg logs to stderr
// only.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, c.logLevel())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

var skipConfig = map[string]string{"skipConfigLoad": "true"}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
