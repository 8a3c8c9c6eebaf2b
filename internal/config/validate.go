package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateVariants(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateNavPatch(); err != nil {
		return err
	}
	if err := c.validateCalibre(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.MainFile == "" {
		return errors.New("paths.main_file must be set")
	}
	if filepath.IsAbs(c.Paths.MainFile) || strings.HasPrefix(c.Paths.MainFile, "..") {
		return fmt.Errorf("paths.main_file must be relative to paths.source_dir, got %q", c.Paths.MainFile)
	}
	if c.Paths.BuildDir == "" {
		return errors.New("paths.build_dir must be set")
	}
	if c.Paths.BuildDir == c.Paths.SourceDir {
		return errors.New("paths.build_dir must differ from paths.source_dir")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if c.Metadata.Title == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/quire/config.toml"
		}
		return fmt.Errorf("metadata.title is required. Edit %s or ./%s (create with 'quire config init')", defaultPath, ProjectFileName)
	}
	if c.Metadata.Author == "" {
		return errors.New("metadata.author is required")
	}
	return nil
}

func (c *Config) validateVariants() error {
	outputs := map[string]string{
		"standard.output":    c.Standard.Output,
		"google_play.output": c.GooglePlay.Output,
	}
	for key, value := range outputs {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if filepath.Base(value) != value {
			return fmt.Errorf("%s must be a file name without directories, got %q", key, value)
		}
		if !strings.EqualFold(filepath.Ext(value), ".epub") {
			return fmt.Errorf("%s must end in .epub, got %q", key, value)
		}
	}
	if c.Standard.Output == c.GooglePlay.Output {
		return errors.New("standard.output and google_play.output must differ")
	}
	switch c.GooglePlay.IntermediateFormat {
	case "mobi", "azw3":
	default:
		return fmt.Errorf("google_play.intermediate_format must be mobi or azw3, got %q", c.GooglePlay.IntermediateFormat)
	}
	switch c.GooglePlay.EPUBVersion {
	case "2", "3":
	default:
		return fmt.Errorf("google_play.epub_version must be 2 or 3, got %q", c.GooglePlay.EPUBVersion)
	}
	return nil
}

func (c *Config) validateSource() error {
	for _, cmd := range c.Source.IncludeCommands {
		if !isMacroName(cmd) {
			return fmt.Errorf("source.include_commands contains invalid macro name %q", cmd)
		}
	}
	if !isMacroName(c.Source.VerseMacro) {
		return fmt.Errorf("source.verse_macro must be a macro name, got %q", c.Source.VerseMacro)
	}
	return nil
}

func (c *Config) validateConverter() error {
	if c.Converter.From == "" || c.Converter.To == "" {
		return errors.New("converter.from and converter.to must be set")
	}
	if c.Converter.TOCDepth < 1 || c.Converter.TOCDepth > 6 {
		return fmt.Errorf("converter.toc_depth must be between 1 and 6, got %d", c.Converter.TOCDepth)
	}
	if c.Converter.SplitFlag != "" && c.Converter.SplitLevel < 1 {
		return errors.New("converter.split_level must be positive when converter.split_flag is set")
	}
	if c.Converter.CoverImage != "" && !strings.HasPrefix(c.Converter.CoverFlag, "-") {
		return fmt.Errorf("converter.cover_flag must be a flag, got %q", c.Converter.CoverFlag)
	}
	if c.Converter.SplitFlag != "" && !strings.HasPrefix(c.Converter.SplitFlag, "-") {
		return fmt.Errorf("converter.split_flag must be a flag, got %q", c.Converter.SplitFlag)
	}
	return nil
}

func (c *Config) validateNavPatch() error {
	if !c.NavPatch.Enabled {
		return nil
	}
	if !isMacroName(c.NavPatch.Element) {
		return fmt.Errorf("nav_patch.element must be an element name, got %q", c.NavPatch.Element)
	}
	if c.NavPatch.Attribute == "" {
		return errors.New("nav_patch.attribute must be set when nav_patch.enabled is true")
	}
	return nil
}

func (c *Config) validateCalibre() error {
	if c.Calibre.ConvertBinary == "" {
		return errors.New("calibre.convert_binary must be set")
	}
	if c.GooglePlay.Polish && c.Calibre.PolishBinary == "" {
		return errors.New("calibre.polish_binary must be set when google_play.polish is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func isMacroName(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
