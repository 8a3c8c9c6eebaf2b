package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"quire/internal/epub"
	"quire/internal/testsupport"
)

func TestBuildCommandRecordsHistory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource))
	configPath := writeTestConfig(t, cfg)
	tools := testsupport.NewFakeTools()

	out, _, err := runCLIWith(t, tools, []string{"build", "standard", "--skip-preflight"}, configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	final := filepath.Join(cfg.Paths.BuildDir, "book.epub")
	requireContains(t, out, "standard: "+final)
	requireContains(t, out, "Built standard")
	if len(tools.CallsTo("pandoc")) != 1 {
		t.Fatalf("expected one pandoc call, got %+v", tools.Calls())
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var views []historyView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(views))
	}
	if views[0].Status != "succeeded" || views[0].Output != final || views[0].SHA256 == "" {
		t.Fatalf("unexpected history row: %+v", views[0])
	}

	out, _, err = runCLI(t, []string{"history", "--variant", "google-play"}, configPath)
	if err != nil {
		t.Fatalf("history --variant: %v", err)
	}
	requireContains(t, out, "No builds recorded")
}

func TestBuildExecutorIsScopedToRootCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource), testsupport.WithoutHistory())
	configPath := writeTestConfig(t, cfg)

	first := testsupport.NewFakeTools()
	second := testsupport.NewFakeTools()
	if _, _, err := runCLIWith(t, first, []string{"build", "standard", "--skip-preflight"}, configPath); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, _, err := runCLIWith(t, second, []string{"build", "standard", "--skip-preflight"}, configPath); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if got := len(first.CallsTo("pandoc")); got != 1 {
		t.Fatalf("first executor saw %d pandoc calls, want 1", got)
	}
	if got := len(second.CallsTo("pandoc")); got != 1 {
		t.Fatalf("second executor saw %d pandoc calls, want 1", got)
	}
}

func TestBuildCommandRejectsUnknownVariant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource))
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"build", "kindle"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown variant") {
		t.Fatalf("expected unknown variant error, got %v", err)
	}
}

func TestBuildCommandReportsStageFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource))
	configPath := writeTestConfig(t, cfg)
	tools := testsupport.NewFakeTools()
	tools.Fail["pandoc"] = "Error producing EPUB"

	_, _, err := runCLIWith(t, tools, []string{"build", "standard", "--skip-preflight"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "build failed") {
		t.Fatalf("expected build failure, got %v", err)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.BuildDir, "book.epub"))
}

func TestHistoryCommandWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "disabled")
}

func TestInspectAndPatchNav(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.epub")
	dst := filepath.Join(dir, "out.epub")
	testsupport.WriteEPUB(t, src, testsupport.EPUB{
		Title:      "Gita",
		Creator:    "Vyasa",
		Identifier: "urn:uuid:1",
		Landmarks:  true,
	})

	out, _, err := runCLI(t, []string{"inspect", "--json", src}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var view inspectView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode inspect json: %v\n%s", err, out)
	}
	if !slices.Contains(view.NavTypes, "landmarks") {
		t.Fatalf("expected landmarks nav, got %v", view.NavTypes)
	}
	if len(view.Titles) != 1 || view.Titles[0] != "Gita" {
		t.Fatalf("unexpected titles %v", view.Titles)
	}

	out, _, err = runCLI(t, []string{"patch-nav", src, dst}, "")
	if err != nil {
		t.Fatalf("patch-nav: %v", err)
	}
	requireContains(t, out, "Removed")

	info, err := epub.Inspect(dst)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.HasNavType("landmarks") {
		t.Fatal("landmarks should be gone from the patched copy")
	}
	if info.FirstEntry != "mimetype" || !info.FirstEntryStored {
		t.Fatalf("mimetype not first/stored: %+v", info)
	}
	if kept, _ := epub.Inspect(src); kept == nil || !kept.HasNavType("landmarks") {
		t.Fatal("source should be untouched when an output path is given")
	}

	out, _, err = runCLI(t, []string{"inspect", dst}, "")
	if err != nil {
		t.Fatalf("inspect table: %v", err)
	}
	requireContains(t, out, "Gita")
	requireContains(t, out, "Vyasa")
}

func TestPatchNavRequireMatch(t *testing.T) {
	src := filepath.Join(t.TempDir(), "plain.epub")
	testsupport.WriteEPUB(t, src, testsupport.EPUB{Title: "Plain", Identifier: "id"})

	_, _, err := runCLI(t, []string{"patch-nav", "--require-match", src}, "")
	if !errors.Is(err, epub.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	out, _, err := runCLI(t, []string{"patch-nav", src}, "")
	if err != nil {
		t.Fatalf("patch-nav without a block: %v", err)
	}
	requireContains(t, out, "unchanged")
}

func TestVersesCommandWritesOutdir(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteTree(t, filepath.Join(dir, "src"), map[string]string{
		"one.tex":        "\\Verse[2.47]{karmaṇy evādhikāras te}{Your right is to action alone.}\n",
		"nested/two.tex": "\\Verse{a}{b}\n",
	})
	outDir := filepath.Join(dir, "out")

	out, _, err := runCLI(t, []string{"verses", "-o", outDir, src}, "")
	if err != nil {
		t.Fatalf("verses: %v", err)
	}
	requireContains(t, out, "converted 1 verse(s)")
	requireContains(t, out, "Converted 1 verse(s) across 1/1 file(s)")

	converted := testsupport.ReadFile(t, filepath.Join(outDir, "one.epub.tex"))
	requireContains(t, converted, `\begin{verse}`)
	requireContains(t, converted, "(2.47)")
	testsupport.AssertMissing(t, filepath.Join(outDir, "two.epub.tex"))

	original := testsupport.ReadFile(t, filepath.Join(src, "one.tex"))
	requireContains(t, original, `\Verse[2.47]`)
}

func TestVersesCommandNeedsOutdirOrInplace(t *testing.T) {
	file := filepath.Join(t.TempDir(), "one.tex")
	if err := os.WriteFile(file, []byte("\\Verse{a}{b}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, []string{"verses", file}, "")
	if err == nil || !strings.Contains(err.Error(), "--outdir") {
		t.Fatalf("expected outdir error, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"verses", "--inplace", file}, ""); err != nil {
		t.Fatalf("verses --inplace: %v", err)
	}
	requireContains(t, testsupport.ReadFile(t, file), `\begin{verse}`)
}

func TestLabelsCommandKeepsLabelsUniqueAcrossFiles(t *testing.T) {
	src := testsupport.WriteTree(t, t.TempDir(), map[string]string{
		"a.tex":     "\\chapter{Introduction}\nText.\n",
		"sub/b.tex": "\\chapter{Introduction}\n\\section{Notes}\\label{sec-notes}\n",
	})

	out, _, err := runCLI(t, []string{"labels", src}, "")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	requireContains(t, out, "2/2 files updated; 2 label(s) inserted")

	combined := testsupport.ReadFile(t, filepath.Join(src, "a.tex")) + testsupport.ReadFile(t, filepath.Join(src, "sub", "b.tex"))
	requireContains(t, combined, `\label{chap-introduction}`)
	requireContains(t, combined, `\label{chap-introduction-2}`)
	if strings.Count(combined, `\label{sec-notes}`) != 1 {
		t.Fatalf("existing label duplicated:\n%s", combined)
	}
}

func TestFootnotesCommandMergesInPlace(t *testing.T) {
	src := testsupport.WriteTree(t, t.TempDir(), map[string]string{
		"quote.tex": "\\begin{customquote}\nWords\\footnotemark\n\\end{customquote}\n\\footnotetext{Source.}\n",
		"plain.tex": "Nothing here.\n",
	})

	out, _, err := runCLI(t, []string{"footnotes", src}, "")
	if err != nil {
		t.Fatalf("footnotes: %v", err)
	}
	requireContains(t, out, "1/2 file(s) updated")
	merged := testsupport.ReadFile(t, filepath.Join(src, "quote.tex"))
	requireContains(t, merged, `Words\footnote{Source.}`)
	if strings.Contains(merged, `\footnotetext`) {
		t.Fatalf("footnote text should be consumed:\n%s", merged)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "quire.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}

	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	out, _, err = runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+configPath)
	requireContains(t, out, "Configuration valid")
}

func TestDoctorCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource), testsupport.WithStubbedBinaries())
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"doctor", "standard"}, configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Preflight")
	requireContains(t, out, "Main file")
	requireContains(t, out, "Stages: standard")
}

func TestDoctorCommandFailsWithoutPandoc(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithSource(bookSource))
	configPath := writeTestConfig(t, cfg)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, []string{"doctor", "standard"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "required check(s) failed") {
		t.Fatalf("expected doctor failure, got %v", err)
	}
	requireContains(t, out, "pandoc")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	t.Setenv("QUIRE_NTFY_TOPIC", "")
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"test-notify"}, configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "No ntfy topic configured")
}
