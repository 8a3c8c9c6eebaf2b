package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"quire/internal/compat"
	"quire/internal/conversion"
	"quire/internal/job"
	"quire/internal/navpatch"
	"quire/internal/postprocess"
	"quire/internal/services"
	"quire/internal/services/calibre"
	"quire/internal/services/helper"
	"quire/internal/services/pandoc"
	"quire/internal/sourceprep"
	"quire/internal/stage"
)

type pipelineStage struct {
	name    string
	handler stage.Handler
}

// stagesFor returns the ordered stages variant runs through.
func (r *Runner) stagesFor(variant job.Variant, logger *slog.Logger) ([]pipelineStage, error) {
	converter, err := pandoc.New(r.cfg.Converter, pandoc.WithExecutor(r.exec), pandoc.WithLogger(logger))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "conversion", "configure", "Invalid converter settings", err)
	}
	var post *helper.Client
	if r.cfg.PostProcessEnabled() {
		post, err = helper.New(r.cfg.PostProcess, helper.WithExecutor(r.exec), helper.WithLogger(logger))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "postprocess", "configure", "Invalid helper settings", err)
		}
	}

	stages := []pipelineStage{
		{name: "sourceprep", handler: sourceprep.NewStage(r.cfg.Source, logger)},
		{name: "conversion", handler: conversion.NewStage(converter, logger)},
		{name: "postprocess", handler: postprocess.NewStage(post, logger)},
		{name: "navpatch", handler: navpatch.NewStage(r.cfg.NavPatch, logger)},
	}
	switch variant {
	case job.VariantStandard:
	case job.VariantGooglePlay:
		suite, err := calibre.New(r.cfg.Calibre, calibre.WithExecutor(r.exec), calibre.WithLogger(logger))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "compat", "configure", "Invalid conversion suite settings", err)
		}
		stages = append(stages, pipelineStage{
			name:    "compat",
			handler: compat.NewStage(r.cfg.GooglePlay, r.cfg.Calibre, suite, logger),
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "plan", fmt.Sprintf("unknown variant %q", variant), nil)
	}
	return stages, nil
}

// StageHealth reports each stage's readiness for variant.
func (r *Runner) StageHealth(ctx context.Context, variant job.Variant) ([]stage.Health, error) {
	stages, err := r.stagesFor(variant, r.logger)
	if err != nil {
		return nil, err
	}
	out := make([]stage.Health, 0, len(stages))
	for _, stg := range stages {
		out = append(out, stg.handler.HealthCheck(ctx))
	}
	return out, nil
}
