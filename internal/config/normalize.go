package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quire/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMetadata(); err != nil {
		return err
	}
	c.normalizeVariants()
	c.normalizeSource()
	if err := c.normalizeConverter(); err != nil {
		return err
	}
	c.normalizePostProcess()
	c.normalizeNavPatch()
	c.normalizeCalibre()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = defaultSourceDir
	}
	if c.Paths.SourceDir, err = resolvePath(c.BaseDir, c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	c.Paths.MainFile = filepath.Clean(strings.TrimSpace(c.Paths.MainFile))
	if c.Paths.MainFile == "." {
		c.Paths.MainFile = ""
	}
	if strings.TrimSpace(c.Paths.BuildDir) == "" {
		c.Paths.BuildDir = defaultBuildDir
	}
	if c.Paths.BuildDir, err = resolvePath(c.BaseDir, c.Paths.BuildDir); err != nil {
		return fmt.Errorf("paths.build_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = resolvePath(c.BaseDir, c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = resolvePath(c.BaseDir, c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetadata() error {
	c.Metadata.Title = strings.TrimSpace(c.Metadata.Title)
	c.Metadata.Author = strings.TrimSpace(c.Metadata.Author)
	c.Metadata.Rights = strings.TrimSpace(c.Metadata.Rights)
	c.Metadata.Identifier = strings.TrimSpace(c.Metadata.Identifier)
	lang := strings.TrimSpace(c.Metadata.Language)
	if lang == "" {
		lang = defaultLanguage
	}
	tag, err := language.Tag(lang)
	if err != nil {
		return fmt.Errorf("metadata.language: %w", err)
	}
	c.Metadata.Language = tag
	c.Metadata.Publisher = strings.TrimSpace(c.Metadata.Publisher)
	c.Metadata.Description = strings.TrimSpace(c.Metadata.Description)
	c.Metadata.Date = strings.TrimSpace(c.Metadata.Date)
	c.Metadata.Subjects = uniqueTrimmed(c.Metadata.Subjects, false)
	return nil
}

func (c *Config) normalizeVariants() {
	c.Standard.Output = strings.TrimSpace(c.Standard.Output)
	if c.Standard.Output == "" {
		c.Standard.Output = defaultStandardOutput
	}
	c.Standard.Title = strings.TrimSpace(c.Standard.Title)
	c.Standard.Date = strings.TrimSpace(c.Standard.Date)

	c.GooglePlay.Output = strings.TrimSpace(c.GooglePlay.Output)
	if c.GooglePlay.Output == "" {
		c.GooglePlay.Output = defaultGooglePlayOutput
	}
	c.GooglePlay.Title = strings.TrimSpace(c.GooglePlay.Title)
	c.GooglePlay.Date = strings.TrimSpace(c.GooglePlay.Date)
	c.GooglePlay.IntermediateFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.GooglePlay.IntermediateFormat), "."))
	if c.GooglePlay.IntermediateFormat == "" {
		c.GooglePlay.IntermediateFormat = defaultIntermediateFormat
	}
	c.GooglePlay.EPUBVersion = strings.TrimSpace(c.GooglePlay.EPUBVersion)
	if c.GooglePlay.EPUBVersion == "" {
		c.GooglePlay.EPUBVersion = defaultEPUBVersion
	}
}

func (c *Config) normalizeSource() {
	commands := make([]string, 0, len(c.Source.IncludeCommands))
	for _, cmd := range uniqueTrimmed(c.Source.IncludeCommands, false) {
		commands = append(commands, strings.TrimPrefix(cmd, `\`))
	}
	if len(commands) == 0 {
		commands = append(commands, defaultIncludeCommands...)
	}
	c.Source.IncludeCommands = commands
	c.Source.VerseMacro = strings.TrimPrefix(strings.TrimSpace(c.Source.VerseMacro), `\`)
	if c.Source.VerseMacro == "" {
		c.Source.VerseMacro = defaultVerseMacro
	}
}

func (c *Config) normalizeConverter() error {
	var err error
	c.Converter.Binary = strings.TrimSpace(c.Converter.Binary)
	if c.Converter.Binary == "" {
		c.Converter.Binary = defaultConverterBinary
	}
	c.Converter.From = strings.TrimSpace(c.Converter.From)
	if c.Converter.From == "" {
		c.Converter.From = defaultConverterFrom
	}
	c.Converter.To = strings.TrimSpace(c.Converter.To)
	if c.Converter.To == "" {
		c.Converter.To = defaultConverterTo
	}
	if c.Converter.TOCDepth <= 0 {
		c.Converter.TOCDepth = defaultTOCDepth
	}
	c.Converter.SplitFlag = strings.TrimSpace(c.Converter.SplitFlag)
	c.Converter.CoverFlag = strings.TrimSpace(c.Converter.CoverFlag)
	if c.Converter.CoverFlag == "" {
		c.Converter.CoverFlag = defaultCoverFlag
	}
	if c.Converter.CoverImage, err = resolvePath(c.BaseDir, c.Converter.CoverImage); err != nil {
		return fmt.Errorf("converter.cover_image: %w", err)
	}
	if c.Converter.Stylesheets, err = resolveAll(c.BaseDir, c.Converter.Stylesheets); err != nil {
		return fmt.Errorf("converter.stylesheets: %w", err)
	}
	if c.Converter.Filters, err = resolveAll(c.BaseDir, c.Converter.Filters); err != nil {
		return fmt.Errorf("converter.filters: %w", err)
	}
	if c.Converter.TimeoutSeconds < 0 {
		c.Converter.TimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizePostProcess() {
	command := make([]string, 0, len(c.PostProcess.Command))
	for _, part := range c.PostProcess.Command {
		if part = strings.TrimSpace(part); part != "" {
			command = append(command, part)
		}
	}
	c.PostProcess.Command = command
	if len(command) > 0 && len(c.PostProcess.Args) == 0 {
		c.PostProcess.Args = []string{"{input}", "{output}"}
	}
	if c.PostProcess.TimeoutSeconds < 0 {
		c.PostProcess.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeNavPatch() {
	c.NavPatch.Element = strings.ToLower(strings.TrimSpace(c.NavPatch.Element))
	if c.NavPatch.Element == "" {
		c.NavPatch.Element = defaultNavElement
	}
	c.NavPatch.Attribute = strings.TrimSpace(c.NavPatch.Attribute)
	if c.NavPatch.Attribute == "" {
		c.NavPatch.Attribute = defaultNavAttribute
	}
}

func (c *Config) normalizeCalibre() {
	c.Calibre.ConvertBinary = strings.TrimSpace(c.Calibre.ConvertBinary)
	if c.Calibre.ConvertBinary == "" {
		c.Calibre.ConvertBinary = defaultConvertBinary
	}
	c.Calibre.PolishBinary = strings.TrimSpace(c.Calibre.PolishBinary)
	if c.Calibre.PolishBinary == "" {
		c.Calibre.PolishBinary = defaultPolishBinary
	}
	if c.Calibre.TimeoutSeconds < 0 {
		c.Calibre.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = resolvePath(c.BaseDir, c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("QUIRE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func resolveAll(base string, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range uniqueTrimmed(values, false) {
		resolved, err := resolvePath(base, value)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func uniqueTrimmed(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
