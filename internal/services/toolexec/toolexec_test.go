package toolexec_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"quire/internal/services/toolexec"
)

type scriptedExecutor struct {
	stdout []string
	stderr []string
	err    error
	got    []toolexec.Command
}

func (s *scriptedExecutor) Run(_ context.Context, cmd toolexec.Command, onLine func(toolexec.Stream, string)) error {
	s.got = append(s.got, cmd)
	for _, line := range s.stdout {
		onLine(toolexec.Stdout, line)
	}
	for _, line := range s.stderr {
		onLine(toolexec.Stderr, line)
	}
	return s.err
}

func TestRunnerAttachesStderrTail(t *testing.T) {
	stderr := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		stderr = append(stderr, fmt.Sprintf("line %d", i))
	}
	exec := &scriptedExecutor{
		stderr: stderr,
		err:    &toolexec.ExitError{Code: 64},
	}
	runner := toolexec.NewRunner(toolexec.WithExecutor(exec))

	err := runner.Run(context.Background(), toolexec.Command{Binary: "pandoc", Args: []string{"in.tex"}})
	var exitErr *toolexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 64 || exitErr.Binary != "pandoc" {
		t.Fatalf("unexpected exit error: %+v", exitErr)
	}
	if len(exitErr.Stderr) != toolexec.StderrTailLines {
		t.Fatalf("expected %d tail lines, got %d", toolexec.StderrTailLines, len(exitErr.Stderr))
	}
	if exitErr.Stderr[len(exitErr.Stderr)-1] != "line 29" {
		t.Fatalf("unexpected last line: %q", exitErr.Stderr[len(exitErr.Stderr)-1])
	}
	if !strings.Contains(err.Error(), "status 64") {
		t.Fatalf("expected status in message, got %q", err)
	}
}

func TestRunnerRequiresBinary(t *testing.T) {
	runner := toolexec.NewRunner(toolexec.WithExecutor(&scriptedExecutor{}))
	if err := runner.Run(context.Background(), toolexec.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCommandExecutorReportsExitCode(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\necho out\necho \"bad input\" >&2\nexit 3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	runner := toolexec.NewRunner()
	err := runner.Run(context.Background(), toolexec.Command{Binary: script})
	var exitErr *toolexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.Code)
	}
	if len(exitErr.Stderr) != 1 || exitErr.Stderr[0] != "bad input" {
		t.Fatalf("unexpected stderr tail: %v", exitErr.Stderr)
	}
}

func TestCommandExecutorRunsInDir(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ntouch marker\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	work := t.TempDir()
	if err := toolexec.NewRunner().Run(context.Background(), toolexec.Command{Binary: script, Dir: work}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "marker")); err != nil {
		t.Fatalf("expected marker in working dir: %v", err)
	}
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &scriptedExecutor{err: errors.New("signal: killed")}
	err := toolexec.NewRunner(toolexec.WithExecutor(exec)).Run(ctx, toolexec.Command{Binary: "pandoc"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCommandExecutorDrainsOverlongLines(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\nhead -c 3000000 /dev/zero | tr '\\0' a\necho\necho tail\necho \"after\" >&2\nexit 4\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	var mu sync.Mutex
	var stdout []string
	done := make(chan error, 1)
	go func() {
		done <- toolexec.CommandExecutor{}.Run(context.Background(), toolexec.Command{Binary: script}, func(stream toolexec.Stream, line string) {
			if stream == toolexec.Stdout {
				mu.Lock()
				stdout = append(stdout, line)
				mu.Unlock()
			}
		})
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("Run did not return after an overlong output line")
	}

	var osExit interface{ ExitCode() int }
	if !errors.As(err, &osExit) || osExit.ExitCode() != 4 {
		t.Fatalf("expected the tool's exit status 4, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(stdout) != 1 || !strings.Contains(stdout[0], "rest of stdout not logged") {
		t.Fatalf("unexpected stdout lines: %d", len(stdout))
	}
}

func TestRunnerKeepsStderrTailAfterOverlongStdout(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\nhead -c 2000000 /dev/zero | tr '\\0' a\necho \"conversion failed\" >&2\nexit 2\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := toolexec.NewRunner().Run(ctx, toolexec.Command{Binary: script})
	var exitErr *toolexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 2 || len(exitErr.Stderr) != 1 || exitErr.Stderr[0] != "conversion failed" {
		t.Fatalf("unexpected exit error: %+v", exitErr)
	}
}
