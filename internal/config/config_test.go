package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"quire/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "quire.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadResolvesPathsAgainstConfigDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[paths]
source_dir = "src"
build_dir = "out"

[metadata]
title = "  The Book  "
author = "Someone"
subjects = ["Poetry", "Poetry", " Philosophy "]

[converter]
cover_image = "images/cover.png"
stylesheets = ["epub.css"]
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.BaseDir != dir {
		t.Fatalf("unexpected base dir: %q", cfg.BaseDir)
	}
	if cfg.Paths.SourceDir != filepath.Join(dir, "src") {
		t.Fatalf("unexpected source dir: %q", cfg.Paths.SourceDir)
	}
	if cfg.Paths.BuildDir != filepath.Join(dir, "out") {
		t.Fatalf("unexpected build dir: %q", cfg.Paths.BuildDir)
	}
	if cfg.MainPath() != filepath.Join(dir, "src", "main.tex") {
		t.Fatalf("unexpected main path: %q", cfg.MainPath())
	}
	if cfg.Converter.CoverImage != filepath.Join(dir, "images", "cover.png") {
		t.Fatalf("unexpected cover path: %q", cfg.Converter.CoverImage)
	}
	if len(cfg.Converter.Stylesheets) != 1 || cfg.Converter.Stylesheets[0] != filepath.Join(dir, "epub.css") {
		t.Fatalf("unexpected stylesheets: %v", cfg.Converter.Stylesheets)
	}
	if cfg.Metadata.Title != "The Book" {
		t.Fatalf("expected trimmed title, got %q", cfg.Metadata.Title)
	}
	if strings.Join(cfg.Metadata.Subjects, ",") != "Poetry,Philosophy" {
		t.Fatalf("unexpected subjects: %v", cfg.Metadata.Subjects)
	}
	if cfg.History.Path != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Standard.Output != "book.epub" || cfg.GooglePlay.Output != "book-googleplay.epub" {
		t.Fatalf("unexpected outputs: %q %q", cfg.Standard.Output, cfg.GooglePlay.Output)
	}
	if !cfg.NavPatch.Enabled || cfg.NavPatch.Attribute != `epub:type="landmarks"` {
		t.Fatalf("unexpected nav patch defaults: %+v", cfg.NavPatch)
	}
}

func TestLoadWithoutFileRequiresTitle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected validation error without metadata")
	}
	if !strings.Contains(err.Error(), "metadata.title") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadPrefersProjectFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	userDir := filepath.Join(home, ".config", "quire")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "config.toml"), []byte("[metadata]\ntitle = \"User\"\nauthor = \"A\"\n"), 0o644); err != nil {
		t.Fatalf("write user config: %v", err)
	}
	project := t.TempDir()
	writeConfig(t, project, "[metadata]\ntitle = \"Project\"\nauthor = \"A\"\n")
	t.Chdir(project)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != config.ProjectFileName {
		t.Fatalf("expected project file, got %q", resolved)
	}
	if cfg.Metadata.Title != "Project" {
		t.Fatalf("expected project config, got title %q", cfg.Metadata.Title)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), "[metadata]\ntitle = \"T\"\nauthor = \"A\"\nsubtitle = \"nope\"\n")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestNotificationTopicFallsBackToEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIRE_NTFY_TOPIC", " https://ntfy.sh/books ")
	path := writeConfig(t, t.TempDir(), "[metadata]\ntitle = \"T\"\nauthor = \"A\"\n")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/books" {
		t.Fatalf("unexpected topic: %q", cfg.Notifications.NtfyTopic)
	}
}

func TestSourceMacroNamesAreNormalized(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), `
[metadata]
title = "T"
author = "A"

[source]
include_commands = ["\\input", "subfile"]
verse_macro = "\\Shloka"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if strings.Join(cfg.Source.IncludeCommands, ",") != "input,subfile" {
		t.Fatalf("unexpected include commands: %v", cfg.Source.IncludeCommands)
	}
	if cfg.Source.VerseMacro != "Shloka" {
		t.Fatalf("unexpected verse macro: %q", cfg.Source.VerseMacro)
	}
}

func TestMetadataLanguageIsCanonicalized(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), `
[metadata]
title = "T"
author = "A"
language = "Sanskrit"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Metadata.Language != "sa" {
		t.Fatalf("unexpected language: %q", cfg.Metadata.Language)
	}

	bad := writeConfig(t, t.TempDir(), `
[metadata]
title = "T"
author = "A"
language = "not a language"
`)
	if _, _, _, err := config.Load(bad); err == nil || !strings.Contains(err.Error(), "metadata.language") {
		t.Fatalf("expected metadata.language error, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing author", func(c *config.Config) { c.Metadata.Author = "" }, "metadata.author"},
		{"same outputs", func(c *config.Config) { c.GooglePlay.Output = c.Standard.Output }, "must differ"},
		{"non epub output", func(c *config.Config) { c.Standard.Output = "book.pdf" }, ".epub"},
		{"nested output", func(c *config.Config) { c.Standard.Output = "dist/book.epub" }, "without directories"},
		{"toc depth", func(c *config.Config) { c.Converter.TOCDepth = 9 }, "toc_depth"},
		{"intermediate", func(c *config.Config) { c.GooglePlay.IntermediateFormat = "pdf" }, "intermediate_format"},
		{"nav attribute", func(c *config.Config) { c.NavPatch.Attribute = "" }, "nav_patch.attribute"},
		{"verse macro", func(c *config.Config) { c.Source.VerseMacro = "Verse1" }, "verse_macro"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"build equals source", func(c *config.Config) { c.Paths.BuildDir = c.Paths.SourceDir }, "build_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Metadata.Title = "T"
			cfg.Metadata.Author = "A"
			cfg.Paths.SourceDir = "/src"
			cfg.Paths.BuildDir = "/src/build"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Metadata.Title == "" || cfg.Converter.Binary != "pandoc" {
		t.Fatalf("unexpected sample content: %+v", cfg.Metadata)
	}

	t.Setenv("HOME", t.TempDir())
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
}

func TestEnsureDirectoriesCreatesLayout(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BuildDir = filepath.Join(base, "build")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.History.Path = filepath.Join(base, "db", "history.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{"build", "logs", "state", "db"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
