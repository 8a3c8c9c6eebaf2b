package stage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"quire/internal/job"
	"quire/internal/services"
)

// RequireArtifact checks that the job has an input artifact on disk. On
// failure it returns a services.ErrValidation suitable for stage Execute
// methods.
func RequireArtifact(stageName string, j *job.Job) (string, error) {
	if j == nil {
		return "", services.Wrap(services.ErrValidation, stageName, "input", "Job is nil", nil)
	}
	if j.Artifact == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "input", "No input artifact; an earlier stage did not run", nil)
	}
	info, err := os.Stat(j.Artifact)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, stageName, "input", fmt.Sprintf("Input artifact %s missing", j.Artifact), err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrValidation, stageName, "input", fmt.Sprintf("Input artifact %s is empty", j.Artifact), nil)
	}
	return j.Artifact, nil
}

// ToolError classifies an external tool failure: deadline overruns become
// services.ErrTimeout, everything else services.ErrExternalTool.
func ToolError(stageName, operation, message string, err error) error {
	marker := services.ErrExternalTool
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, stageName, operation, message, err)
}
