package calibre

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

// WithLogger routes tool output lines to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps ebook-convert and ebook-polish.
type Client struct {
	convertBinary string
	polishBinary  string
	exec          toolexec.Executor
	logger        *slog.Logger
	runner        *toolexec.Runner
}

// New constructs a Calibre client.
func New(cfg config.Calibre, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ConvertBinary) == "" {
		return nil, errors.New("ebook-convert binary required")
	}
	client := &Client{
		convertBinary: cfg.ConvertBinary,
		polishBinary:  cfg.PolishBinary,
		exec:          toolexec.CommandExecutor{},
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

// Convert runs ebook-convert input output [extra...]. The output format
// follows the output file extension.
func (c *Client) Convert(ctx context.Context, input, output string, extra ...string) error {
	args := append([]string{input, output}, extra...)
	if err := c.runner.Run(ctx, toolexec.Command{Binary: c.convertBinary, Args: args}); err != nil {
		return fmt.Errorf("ebook-convert: %w", err)
	}
	return requireOutput("ebook-convert", output)
}

// ConvertToEPUB converts input to an EPUB of the given version ("2" or "3").
func (c *Client) ConvertToEPUB(ctx context.Context, input, output, version string) error {
	var extra []string
	if version != "" {
		extra = append(extra, "--epub-version", version)
	}
	return c.Convert(ctx, input, output, extra...)
}

// Polish runs ebook-polish --upgrade-book input output.
func (c *Client) Polish(ctx context.Context, input, output string) error {
	if strings.TrimSpace(c.polishBinary) == "" {
		return errors.New("ebook-polish binary required")
	}
	args := []string{"--upgrade-book", input, output}
	if err := c.runner.Run(ctx, toolexec.Command{Binary: c.polishBinary, Args: args}); err != nil {
		return fmt.Errorf("ebook-polish: %w", err)
	}
	return requireOutput("ebook-polish", output)
}

func requireOutput(tool, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s produced no output file: %w", tool, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s produced an empty output file %s", tool, path)
	}
	return nil
}
