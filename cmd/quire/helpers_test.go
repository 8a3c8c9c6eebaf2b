package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"quire/internal/config"
	"quire/internal/testsupport"
	"quire/internal/workflow"
)

var bookSource = map[string]string{
	"main.tex": "\\documentclass{book}\n\\begin{document}\n\\input{chapters/one}\n\\end{document}\n",
	"chapters/one.tex": "\\chapter{Opening}\n" +
		"\\Verse[1.1]{first line \\\\ second line}{A translation.}\n",
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWith(t, nil, args, configPath)
}

// runCLIWith runs the CLI with builds routed to tools, an in-process tool
// emulator. A nil tools leaves the real executor in place.
func runCLIWith(t *testing.T, tools *testsupport.FakeTools, args []string, configPath string) (string, string, error) {
	t.Helper()
	var opts []workflow.Option
	if tools != nil {
		opts = append(opts, workflow.WithExecutor(tools))
	}
	cmd := newRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(cfg.BaseDir, config.ProjectFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
