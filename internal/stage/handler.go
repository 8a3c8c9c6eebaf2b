package stage

import (
	"context"
	"log/slog"

	"quire/internal/job"
)

// Handler describes the contract the workflow runner needs from each stage.
type Handler interface {
	Prepare(context.Context, *job.Job) error
	Execute(context.Context, *job.Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware stages accept a run-scoped logger before they execute.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
