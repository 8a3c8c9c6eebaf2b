package workflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quire/internal/config"
	"quire/internal/history"
	"quire/internal/logging"
	"quire/internal/notifications"
	"quire/internal/services/toolexec"
)

// Runner builds EPUB variants from one configuration.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	history  *history.Store
	exec     toolexec.Executor

	skipPreflight bool
	keepScratch   bool
	now           func() time.Time
	newRunID      func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor routes every external tool through exec (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithHistory records builds into store. The caller owns the store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.history = store
	}
}

// WithoutPreflight skips binary and input checks.
func WithoutPreflight() Option {
	return func(r *Runner) {
		r.skipPreflight = true
	}
}

// WithKeepIntermediates leaves scratch files in the build directory after a
// successful build.
func WithKeepIntermediates(keep bool) Option {
	return func(r *Runner) {
		r.keepScratch = keep
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.newRunID = func() string { return id }
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifications.NewService(cfg.Notifications),
		exec:     toolexec.CommandExecutor{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
