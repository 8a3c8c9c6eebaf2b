package pandoc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quire/internal/config"
	"quire/internal/epub"
	"quire/internal/services/pandoc"
	"quire/internal/services/toolexec"
	"quire/internal/testsupport"
)

func converterConfig() config.Converter {
	cfg := config.Default().Converter
	cfg.CoverImage = "/src/cover.png"
	cfg.Stylesheets = []string{"/src/a.css", "/src/b.css"}
	cfg.Filters = []string{"/src/verse.lua"}
	cfg.ExtraArgs = []string{"--number-sections"}
	return cfg
}

func TestArgsFollowConfiguration(t *testing.T) {
	client, err := pandoc.New(converterConfig())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	args := client.Args(pandoc.Request{Input: "in.tex", Output: "out.epub", MetadataFile: "meta.yaml", ResourcePath: "/src"})
	want := []string{
		"in.tex", "-f", "latex", "-t", "epub3", "-o", "out.epub",
		"--toc", "--toc-depth=2",
		"--split-level=1",
		"--epub-cover-image=/src/cover.png",
		"--css=/src/a.css", "--css=/src/b.css",
		"--lua-filter=/src/verse.lua",
		"--metadata-file=meta.yaml",
		"--resource-path=/src",
		"--number-sections",
	}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestArgsHonourCustomFlags(t *testing.T) {
	cfg := config.Default().Converter
	cfg.TOC = false
	cfg.SplitFlag = "--epub-chapter-level"
	cfg.SplitLevel = 2
	cfg.CoverFlag = "--cover"
	cfg.CoverImage = "c.jpg"
	client, err := pandoc.New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	joined := strings.Join(client.Args(pandoc.Request{Input: "i", Output: "o"}), " ")
	if strings.Contains(joined, "--toc") {
		t.Fatalf("toc flag present: %s", joined)
	}
	if !strings.Contains(joined, "--epub-chapter-level=2") || !strings.Contains(joined, "--cover=c.jpg") {
		t.Fatalf("custom flags missing: %s", joined)
	}
	if strings.Contains(joined, "metadata-file") {
		t.Fatalf("unexpected metadata flag: %s", joined)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	cfg := config.Default().Converter
	cfg.Binary = " "
	if _, err := pandoc.New(cfg); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestConvertWritesBookFromMetadata(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "metadata.yaml")
	if err := pandoc.WriteMetadata(meta, pandoc.Metadata{
		Title:   "Bhagavad Gita: A Reading",
		Author:  []string{"Translator"},
		Rights:  "CC0",
		Subject: []string{"Poetry"},
		Lang:    "en",
	}); err != nil {
		t.Fatalf("WriteMetadata returned error: %v", err)
	}
	raw := testsupport.ReadFile(t, meta)
	if !strings.Contains(raw, "Bhagavad Gita: A Reading") || strings.Contains(raw, "publisher") {
		t.Fatalf("unexpected metadata yaml:\n%s", raw)
	}

	tools := testsupport.NewFakeTools()
	client, err := pandoc.New(config.Default().Converter, pandoc.WithExecutor(tools))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	out := filepath.Join(dir, "raw.epub")
	if err := client.Convert(context.Background(), pandoc.Request{Input: filepath.Join(dir, "in.tex"), Output: out, MetadataFile: meta}); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	info, err := epub.Inspect(out)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.Metadata.Title() != "Bhagavad Gita: A Reading" || info.Metadata.Author() != "Translator" || info.Metadata.Rights != "CC0" {
		t.Fatalf("unexpected metadata: %+v", info.Metadata)
	}
	if len(tools.CallsTo("pandoc")) != 1 {
		t.Fatalf("expected one pandoc call, got %d", len(tools.Calls()))
	}
}

func TestConvertForwardsToolFailure(t *testing.T) {
	tools := testsupport.NewFakeTools()
	tools.Fail["pandoc"] = "Error producing EPUB: cover not found"
	client, err := pandoc.New(config.Default().Converter, pandoc.WithExecutor(tools))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	dir := t.TempDir()
	err = client.Convert(context.Background(), pandoc.Request{Input: "in.tex", Output: filepath.Join(dir, "out.epub")})
	var exitErr *toolexec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 1 || !strings.Contains(err.Error(), "cover not found") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.epub")); statErr == nil {
		t.Fatal("no output expected after failure")
	}
}

type silentExecutor struct{}

func (silentExecutor) Run(context.Context, toolexec.Command, func(toolexec.Stream, string)) error {
	return nil
}

func TestConvertRequiresOutput(t *testing.T) {
	client, err := pandoc.New(config.Default().Converter, pandoc.WithExecutor(silentExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = client.Convert(context.Background(), pandoc.Request{Input: "in.tex", Output: filepath.Join(t.TempDir(), "out.epub")})
	if err == nil || !strings.Contains(err.Error(), "no output file") {
		t.Fatalf("expected missing output error, got %v", err)
	}
}
