package config

const (
	defaultSourceDir          = "."
	defaultMainFile           = "main.tex"
	defaultBuildDir           = "build"
	defaultLogDir             = "~/.local/share/quire/logs"
	defaultStateDir           = "~/.local/share/quire"
	defaultHistoryFile        = "history.db"
	defaultLanguage           = "en"
	defaultStandardOutput     = "book.epub"
	defaultGooglePlayOutput   = "book-googleplay.epub"
	defaultIntermediateFormat = "mobi"
	defaultEPUBVersion        = "3"
	defaultVerseMacro         = "Verse"
	defaultConverterBinary    = "pandoc"
	defaultConverterFrom      = "latex"
	defaultConverterTo        = "epub3"
	defaultTOCDepth           = 2
	defaultSplitFlag          = "--split-level"
	defaultSplitLevel         = 1
	defaultCoverFlag          = "--epub-cover-image"
	defaultNavElement         = "nav"
	defaultNavAttribute       = `epub:type="landmarks"`
	defaultConvertBinary      = "ebook-convert"
	defaultPolishBinary       = "ebook-polish"
	defaultRequestTimeout     = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

var defaultIncludeCommands = []string{"input", "include"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			MainFile:  defaultMainFile,
			BuildDir:  defaultBuildDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Metadata: Metadata{
			Language: defaultLanguage,
		},
		Standard: Standard{
			Output: defaultStandardOutput,
		},
		GooglePlay: GooglePlay{
			Output:             defaultGooglePlayOutput,
			IntermediateFormat: defaultIntermediateFormat,
			EPUBVersion:        defaultEPUBVersion,
			Polish:             true,
		},
		Source: Source{
			IncludeCommands: append([]string(nil), defaultIncludeCommands...),
			VerseMacro:      defaultVerseMacro,
		},
		Converter: Converter{
			Binary:     defaultConverterBinary,
			From:       defaultConverterFrom,
			To:         defaultConverterTo,
			TOC:        true,
			TOCDepth:   defaultTOCDepth,
			SplitFlag:  defaultSplitFlag,
			SplitLevel: defaultSplitLevel,
			CoverFlag:  defaultCoverFlag,
		},
		NavPatch: NavPatch{
			Enabled:   true,
			Element:   defaultNavElement,
			Attribute: defaultNavAttribute,
		},
		Calibre: Calibre{
			ConvertBinary: defaultConvertBinary,
			PolishBinary:  defaultPolishBinary,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
