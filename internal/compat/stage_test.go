package compat_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quire/internal/compat"
	"quire/internal/config"
	"quire/internal/job"
	"quire/internal/services"
	"quire/internal/services/calibre"
	"quire/internal/testsupport"
)

func setup(t *testing.T, mutate func(*config.Config)) (*job.Job, *testsupport.FakeTools, *compat.Stage) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	j := job.New(cfg, job.VariantGooglePlay, "run", time.Now())
	patched := j.ScratchPath("patched.epub")
	testsupport.WriteEPUB(t, patched, testsupport.EPUB{Title: "Book", Identifier: "id"})
	j.Advance(patched)

	tools := testsupport.NewFakeTools()
	client, err := calibre.New(cfg.Calibre, calibre.WithExecutor(tools))
	if err != nil {
		t.Fatalf("calibre.New: %v", err)
	}
	return j, tools, compat.NewStage(cfg.GooglePlay, cfg.Calibre, client, nil)
}

func TestExecuteRoundTripsAndPolishes(t *testing.T) {
	j, tools, st := setup(t, nil)
	ctx := context.Background()
	if err := st.Prepare(ctx, j); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if err := st.Execute(ctx, j); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if filepath.Base(j.Artifact) != "google-play-polished.epub" {
		t.Fatalf("unexpected artifact %q", j.Artifact)
	}
	calls := tools.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 tool calls, got %d", len(calls))
	}
	if filepath.Base(calls[0].Args[1]) != "google-play-tmp.mobi" {
		t.Fatalf("unexpected intermediate: %v", calls[0].Args)
	}
	if calls[1].Args[len(calls[1].Args)-1] != "3" {
		t.Fatalf("epub version not passed: %v", calls[1].Args)
	}
	if calls[2].Args[0] != "--upgrade-book" {
		t.Fatalf("unexpected polish args: %v", calls[2].Args)
	}
	for _, name := range []string{"tmp.mobi", "tmp.epub", "polished.epub"} {
		found := false
		for _, p := range j.Intermediates {
			if p == j.ScratchPath(name) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s not tracked for cleanup: %v", name, j.Intermediates)
		}
	}
}

func TestExecuteWithoutPolish(t *testing.T) {
	j, tools, st := setup(t, func(c *config.Config) {
		c.GooglePlay.Polish = false
		c.GooglePlay.IntermediateFormat = "azw3"
		c.GooglePlay.EPUBVersion = "2"
	})
	if err := st.Execute(context.Background(), j); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if filepath.Base(j.Artifact) != "google-play-tmp.epub" {
		t.Fatalf("unexpected artifact %q", j.Artifact)
	}
	if len(tools.CallsTo("ebook-polish")) != 0 {
		t.Fatal("polish ran while disabled")
	}
	if filepath.Base(tools.Calls()[0].Args[1]) != "google-play-tmp.azw3" {
		t.Fatalf("unexpected intermediate: %v", tools.Calls()[0].Args)
	}
}

func TestExecuteStopsOnConvertFailure(t *testing.T) {
	j, tools, st := setup(t, nil)
	tools.Fail["ebook-convert"] = "Conversion error: DRM"
	err := st.Execute(context.Background(), j)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if len(tools.Calls()) != 1 {
		t.Fatalf("expected fail-fast after first call, got %d calls", len(tools.Calls()))
	}
}
