package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ProjectFileName is the config file looked up in the working directory.
const ProjectFileName = "quire.toml"

// Paths contains the source tree and output directory layout.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	MainFile  string `toml:"main_file"`
	BuildDir  string `toml:"build_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Metadata is the book metadata attached at conversion time.
type Metadata struct {
	Title       string   `toml:"title"`
	Author      string   `toml:"author"`
	Rights      string   `toml:"rights"`
	Subjects    []string `toml:"subjects"`
	Identifier  string   `toml:"identifier"`
	Language    string   `toml:"language"`
	Publisher   string   `toml:"publisher"`
	Description string   `toml:"description"`
	Date        string   `toml:"date"`
}

// Standard configures the standard EPUB variant.
type Standard struct {
	Output string `toml:"output"`
	Title  string `toml:"title"`
	Date   string `toml:"date"`
}

// GooglePlay configures the Google Play compatible variant.
type GooglePlay struct {
	Output             string `toml:"output"`
	Title              string `toml:"title"`
	Date               string `toml:"date"`
	IntermediateFormat string `toml:"intermediate_format"`
	EPUBVersion        string `toml:"epub_version"`
	Polish             bool   `toml:"polish"`
}

// Source contains the LaTeX preprocessing settings.
type Source struct {
	IncludeCommands  []string `toml:"include_commands"`
	VerseMacro       string   `toml:"verse_macro"`
	AddLabels        bool     `toml:"add_labels"`
	MergeFootnotes   bool     `toml:"merge_footnotes"`
	ChapterSubtitles bool     `toml:"chapter_subtitles"`
}

// Converter contains the pandoc invocation settings.
type Converter struct {
	Binary         string   `toml:"binary"`
	From           string   `toml:"from"`
	To             string   `toml:"to"`
	TOC            bool     `toml:"toc"`
	TOCDepth       int      `toml:"toc_depth"`
	SplitFlag      string   `toml:"split_flag"`
	SplitLevel     int      `toml:"split_level"`
	CoverFlag      string   `toml:"cover_flag"`
	CoverImage     string   `toml:"cover_image"`
	Stylesheets    []string `toml:"stylesheets"`
	Filters        []string `toml:"filters"`
	ExtraArgs      []string `toml:"extra_args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// PostProcess configures the optional EPUB text helper. Args may reference
// {input} and {output}.
type PostProcess struct {
	Command        []string `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// NavPatch configures removal of the landmarks navigation block.
type NavPatch struct {
	Enabled      bool   `toml:"enabled"`
	Element      string `toml:"element"`
	Attribute    string `toml:"attribute"`
	RequireMatch bool   `toml:"require_match"`
}

// Calibre contains the e-book conversion suite binaries.
type Calibre struct {
	ConvertBinary  string `toml:"convert_binary"`
	PolishBinary   string `toml:"polish_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// History configures the SQLite build ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for quire.
//
// Configuration sections by subsystem:
//   - Paths: source tree, build output, logs, and state
//   - Metadata: book metadata shared by both variants
//   - Standard / GooglePlay: per-variant output names and overrides
//   - Source: flattening, verse macro, and optional source passes
//   - Converter: pandoc flags
//   - PostProcess: optional external EPUB helper
//   - NavPatch: landmarks navigation removal
//   - Calibre: ebook-convert / ebook-polish binaries
//   - History: build ledger
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Metadata      Metadata      `toml:"metadata"`
	Standard      Standard      `toml:"standard"`
	GooglePlay    GooglePlay    `toml:"google_play"`
	Source        Source        `toml:"source"`
	Converter     Converter     `toml:"converter"`
	PostProcess   PostProcess   `toml:"postprocess"`
	NavPatch      NavPatch      `toml:"nav_patch"`
	Calibre       Calibre       `toml:"calibre"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	// BaseDir anchors relative paths: the config file's directory, or the
	// working directory when no file exists.
	BaseDir string `toml:"-"`
}

// DefaultConfigPath returns the absolute path to the user-level configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quire/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		cfg.BaseDir = filepath.Dir(resolvedPath)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", false, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.BaseDir = wd
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(ProjectFileName)
	if err != nil {
		return "", false, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return projectPath, false, nil
}

// EnsureDirectories creates the directories a build writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BuildDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// MainPath returns the absolute path of the root LaTeX document.
func (c *Config) MainPath() string {
	return filepath.Join(c.Paths.SourceDir, c.Paths.MainFile)
}

// PostProcessEnabled reports whether an EPUB helper command is configured.
func (c *Config) PostProcessEnabled() bool {
	return len(c.PostProcess.Command) > 0 && strings.TrimSpace(c.PostProcess.Command[0]) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolvePath anchors relative values at base; tilde and absolute values are
// expanded as-is.
func resolvePath(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if strings.HasPrefix(pathValue, "~") || filepath.IsAbs(pathValue) || base == "" {
		return expandPath(pathValue)
	}
	return expandPath(filepath.Join(base, pathValue))
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
