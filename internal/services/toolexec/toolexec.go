// Package toolexec runs the external converters quire delegates to and
// forwards their output to the log.
package toolexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"quire/internal/logging"
)

// StderrTailLines bounds how much tool stderr an ExitError keeps.
const StderrTailLines = 20

// MaxLineBytes is the longest output line forwarded to the log.
const MaxLineBytes = 1024 * 1024

// Command describes one external process invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

func (c Command) String() string {
	parts := append([]string{c.Binary}, c.Args...)
	return strings.Join(parts, " ")
}

// Stream identifies the output pipe a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(Stream, string)) error
}

// ExitError reports a tool that ran but exited unsuccessfully.
type ExitError struct {
	Binary string
	Code   int
	Stderr []string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "\n")
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner executes commands through an Executor, logging every output line at
// debug level and retaining the stderr tail for error reporting.
type Runner struct {
	exec    Executor
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger that receives tool output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout bounds each invocation. Zero disables the limit.
func WithTimeout(seconds int) Option {
	return func(r *Runner) {
		if seconds > 0 {
			r.timeout = time.Duration(seconds) * time.Second
		}
	}
}

// NewRunner constructs a Runner backed by os/exec unless overridden.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{exec: CommandExecutor{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and blocks until it exits. Non-zero exits surface as
// *ExitError carrying the last stderr lines.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Binary) == "" {
		return errors.New("command binary required")
	}
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, r.logger).With(logging.String("tool", cmd.Binary))
	logger.Debug("running external tool", logging.String("command", cmd.String()))

	tail := newTail(StderrTailLines)
	started := time.Now()
	err := r.exec.Run(runCtx, cmd, func(stream Stream, line string) {
		if stream == Stderr {
			tail.add(line)
		}
		logger.Debug(line, logging.String("stream", string(stream)))
	})
	logger.Debug("external tool finished",
		logging.Duration("elapsed", time.Since(started)),
		logging.Bool("ok", err == nil),
	)
	if err == nil {
		return nil
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", cmd.Binary, ctxErr)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if len(exitErr.Stderr) == 0 {
			exitErr.Stderr = tail.lines()
		}
		if exitErr.Binary == "" {
			exitErr.Binary = cmd.Binary
		}
		return exitErr
	}
	var osExit *exec.ExitError
	if errors.As(err, &osExit) {
		return &ExitError{Binary: cmd.Binary, Code: osExit.ExitCode(), Stderr: tail.lines(), Err: err}
	}
	return fmt.Errorf("%s: %w", cmd.Binary, err)
}

// LookPath reports whether binary resolves on PATH.
func LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

// CommandExecutor runs commands with os/exec, streaming both pipes line by line.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, command Command, onLine func(Stream, string)) error {
	cmd := exec.CommandContext(ctx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var scanErr error
	var once sync.Once

	emit := func(stream Stream, line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		onLine(stream, line)
		mu.Unlock()
	}

	// A pipe stops being split into lines after a read error but is always
	// drained to EOF, or the child blocks on a full pipe and never exits.
	scan := func(r io.Reader, stream Stream) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
		for scanner.Scan() {
			emit(stream, scanner.Text())
		}
		err := scanner.Err()
		if err == nil {
			return
		}
		if errors.Is(err, bufio.ErrTooLong) {
			emit(stream, fmt.Sprintf("[line longer than %d bytes; rest of %s not logged]", MaxLineBytes, stream))
		}
		once.Do(func() {
			scanErr = err
		})
		_, _ = io.Copy(io.Discard, r)
	}

	wg.Add(2)
	go scan(stdout, Stdout)
	go scan(stderr, Stderr)

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return err
	}
	if scanErr != nil && !errors.Is(scanErr, bufio.ErrTooLong) {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return nil
}

type tailBuffer struct {
	max   int
	items []string
}

func newTail(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	t.items = append(t.items, line)
	if len(t.items) > t.max {
		t.items = t.items[len(t.items)-t.max:]
	}
}

func (t *tailBuffer) lines() []string {
	if len(t.items) == 0 {
		return nil
	}
	out := make([]string, len(t.items))
	copy(out, t.items)
	return out
}
