package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"quire/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The source tree lives under <base>/src and holds nothing until the caller
// writes into it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.BaseDir = base
	cfgVal.Metadata.Title = "Test Book"
	cfgVal.Metadata.Author = "Test Author"
	cfgVal.Metadata.Rights = "All rights reserved"
	cfgVal.Paths.SourceDir = filepath.Join(base, "src")
	cfgVal.Paths.BuildDir = filepath.Join(base, "build")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")

	if err := os.MkdirAll(cfgVal.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMetadata overrides the book title and author.
func WithMetadata(title, author string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.Title = title
		b.cfg.Metadata.Author = author
	}
}

// WithoutHistory disables the build ledger.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithSource writes the given files (relative name to content) into the
// source directory.
func WithSource(files map[string]string) ConfigOption {
	return func(b *configBuilder) {
		WriteTree(b.t, b.cfg.Paths.SourceDir, files)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default quire external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"pandoc", "ebook-convert", "ebook-polish"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.BaseDir
}
