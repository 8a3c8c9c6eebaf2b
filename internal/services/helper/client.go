package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"quire/internal/config"
	"quire/internal/services/toolexec"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger routes helper output lines to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps the configured post-processing command.
type Client struct {
	command []string
	args    []string
	exec    toolexec.Executor
	logger  *slog.Logger
	runner  *toolexec.Runner
}

// New constructs a helper client. It fails when no command is configured.
func New(cfg config.PostProcess, opts ...Option) (*Client, error) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return nil, errors.New("postprocess command required")
	}
	client := &Client{
		command: append([]string(nil), cfg.Command...),
		args:    append([]string(nil), cfg.Args...),
		exec:    toolexec.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	client.runner = toolexec.NewRunner(
		toolexec.WithExecutor(client.exec),
		toolexec.WithLogger(client.logger),
		toolexec.WithTimeout(cfg.TimeoutSeconds),
	)
	return client, nil
}

// Binary returns the helper executable.
func (c *Client) Binary() string {
	return c.command[0]
}

// Command builds the invocation for input and output.
func (c *Client) Command(input, output string) toolexec.Command {
	replacer := strings.NewReplacer("{input}", input, "{output}", output)
	args := append([]string(nil), c.command[1:]...)
	for _, arg := range c.args {
		args = append(args, replacer.Replace(arg))
	}
	return toolexec.Command{Binary: c.command[0], Args: args}
}

// Process runs the helper and verifies it wrote output.
func (c *Client) Process(ctx context.Context, input, output string) error {
	cmd := c.Command(input, output)
	if err := c.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("postprocess: %w", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("postprocess helper produced no output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("postprocess helper produced an empty output file %s", output)
	}
	return nil
}
