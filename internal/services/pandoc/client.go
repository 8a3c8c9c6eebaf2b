package pandoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"quire/internal/config"
	"quire/internal/services/toolexec"
)

// Metadata is the pandoc metadata block written to --metadata-file.
type Metadata struct {
	Title       string   `yaml:"title"`
	Author      []string `yaml:"author,omitempty"`
	Rights      string   `yaml:"rights,omitempty"`
	Subject     []string `yaml:"subject,omitempty"`
	Identifier  string   `yaml:"identifier,omitempty"`
	Lang        string   `yaml:"lang,omitempty"`
	Publisher   string   `yaml:"publisher,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Date        string   `yaml:"date,omitempty"`
}

// Request describes one conversion.
type Request struct {
	Input        string
	Output       string
	MetadataFile string
	// ResourcePath lets pandoc find images referenced relative to the
	// original source tree while reading the flattened copy.
	ResourcePath string
}

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

// WithLogger routes pandoc output lines to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps pandoc CLI interactions.
type Client struct {
	cfg    config.Converter
	exec   toolexec.Executor
	logger *slog.Logger
	runner *toolexec.Runner
}

// New constructs a pandoc client from the converter configuration.
func New(cfg config.Converter, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Binary) == "" {
		return nil, errors.New("pandoc binary required")
	}
	client := &Client{cfg: cfg, exec: toolexec.CommandExecutor{}}
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

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.cfg.Binary
}

// Args builds the pandoc argument list for req.
func (c *Client) Args(req Request) []string {
	cfg := c.cfg
	args := []string{req.Input, "-f", cfg.From, "-t", cfg.To, "-o", req.Output}
	if cfg.TOC {
		args = append(args, "--toc", "--toc-depth="+strconv.Itoa(cfg.TOCDepth))
	}
	if cfg.SplitFlag != "" {
		args = append(args, cfg.SplitFlag+"="+strconv.Itoa(cfg.SplitLevel))
	}
	if cfg.CoverImage != "" {
		args = append(args, cfg.CoverFlag+"="+cfg.CoverImage)
	}
	for _, css := range cfg.Stylesheets {
		args = append(args, "--css="+css)
	}
	for _, filter := range cfg.Filters {
		args = append(args, "--lua-filter="+filter)
	}
	if req.MetadataFile != "" {
		args = append(args, "--metadata-file="+req.MetadataFile)
	}
	if req.ResourcePath != "" {
		args = append(args, "--resource-path="+req.ResourcePath)
	}
	return append(args, cfg.ExtraArgs...)
}

// Convert runs pandoc and verifies the output file exists and is non-empty.
func (c *Client) Convert(ctx context.Context, req Request) error {
	if req.Input == "" || req.Output == "" {
		return errors.New("pandoc input and output required")
	}
	if err := c.runner.Run(ctx, toolexec.Command{Binary: c.cfg.Binary, Args: c.Args(req)}); err != nil {
		return fmt.Errorf("pandoc convert: %w", err)
	}
	info, err := os.Stat(req.Output)
	if err != nil {
		return fmt.Errorf("pandoc produced no output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("pandoc produced an empty output file %s", req.Output)
	}
	return nil
}

// WriteMetadata marshals md as a YAML metadata file at path.
func WriteMetadata(path string, md Metadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	return nil
}
