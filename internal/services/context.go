package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	variantKey contextKey = "variant"
	stageKey   contextKey = "stage"
)

// WithRunID annotates context with the build run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVariant annotates context with the output variant name.
func WithVariant(ctx context.Context, variant string) context.Context {
	if variant == "" {
		return ctx
	}
	return context.WithValue(ctx, variantKey, variant)
}

// VariantFromContext returns the variant name if present.
func VariantFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(variantKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
