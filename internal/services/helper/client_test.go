package helper_test

import (
	"context"
	"path/filepath"
	"testing"

	"quire/internal/config"
	"quire/internal/services/helper"
	"quire/internal/testsupport"
)

func TestCommandSubstitutesPlaceholders(t *testing.T) {
	client, err := helper.New(config.PostProcess{
		Command: []string{"python3", "strip.py"},
		Args:    []string{"--in={input}", "{output}"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got := client.Command("/b/raw.epub", "/b/clean.epub").String()
	if got != "python3 strip.py --in=/b/raw.epub /b/clean.epub" {
		t.Fatalf("unexpected command: %q", got)
	}
}

func TestNewRequiresCommand(t *testing.T) {
	if _, err := helper.New(config.PostProcess{}); err == nil {
		t.Fatal("expected error without command")
	}
}

func TestProcessRunsHelper(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.epub")
	out := filepath.Join(dir, "out.epub")
	testsupport.WriteEPUB(t, in, testsupport.EPUB{Title: "Book", Identifier: "id"})

	tools := testsupport.NewFakeTools()
	tools.Helpers = []string{"epub-strip"}
	client, err := helper.New(config.PostProcess{Command: []string{"epub-strip"}, Args: []string{"{input}", "{output}"}}, helper.WithExecutor(tools))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Process(context.Background(), in, out); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if testsupport.ReadFile(t, out) != testsupport.ReadFile(t, in) {
		t.Fatal("expected helper output to match input copy")
	}
}
