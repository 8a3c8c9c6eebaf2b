package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"quire/internal/services/toolexec"
)

// FakeTools is a toolexec.Executor that emulates pandoc, ebook-convert and
// ebook-polish in-process. pandoc renders an EPUB from the metadata file it is
// handed; the Calibre tools copy their input to their output.
type FakeTools struct {
	// Fail makes the named binary (base name) exit with code 1 and print the
	// message to stderr.
	Fail map[string]string
	// Landmarks controls whether generated books carry a landmarks nav.
	Landmarks bool
	// Helpers lists extra binaries that copy their first positional argument
	// to their last, standing in for a post-processing command.
	Helpers []string

	mu    sync.Mutex
	calls []toolexec.Command
}

// NewFakeTools returns an emulator producing books with a landmarks block.
func NewFakeTools() *FakeTools {
	return &FakeTools{Landmarks: true, Fail: map[string]string{}}
}

// Calls returns the commands seen so far.
func (f *FakeTools) Calls() []toolexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolexec.Command(nil), f.calls...)
}

// CallsTo returns the commands whose binary base name matches name.
func (f *FakeTools) CallsTo(name string) []toolexec.Command {
	var out []toolexec.Command
	for _, call := range f.Calls() {
		if filepath.Base(call.Binary) == name {
			out = append(out, call)
		}
	}
	return out
}

// Run implements toolexec.Executor.
func (f *FakeTools) Run(ctx context.Context, cmd toolexec.Command, onLine func(toolexec.Stream, string)) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(cmd.Binary)
	if msg, ok := f.Fail[name]; ok {
		onLine(toolexec.Stderr, msg)
		return &toolexec.ExitError{Binary: cmd.Binary, Code: 1, Err: errors.New("exit status 1")}
	}
	onLine(toolexec.Stdout, name+" "+strings.Join(cmd.Args, " "))

	var err error
	switch name {
	case "pandoc":
		err = f.pandoc(cmd)
	case "ebook-convert":
		err = copyArgs(cmd.Args, 0, 1)
	case "ebook-polish":
		err = copyArgs(positional(cmd.Args), 0, 1)
	default:
		if slices.Contains(f.Helpers, name) {
			pos := positional(cmd.Args)
			err = copyArgs(pos, 0, len(pos)-1)
			break
		}
		return &toolexec.ExitError{Binary: cmd.Binary, Code: 127, Err: fmt.Errorf("unknown tool %s", name)}
	}
	if err != nil {
		onLine(toolexec.Stderr, err.Error())
		return &toolexec.ExitError{Binary: cmd.Binary, Code: 2, Err: err}
	}
	return nil
}

func (f *FakeTools) pandoc(cmd toolexec.Command) error {
	var output, metadataFile string
	for i := 0; i < len(cmd.Args); i++ {
		arg := cmd.Args[i]
		switch {
		case arg == "-o" && i+1 < len(cmd.Args):
			output = cmd.Args[i+1]
			i++
		case strings.HasPrefix(arg, "--metadata-file="):
			metadataFile = strings.TrimPrefix(arg, "--metadata-file=")
		}
	}
	if output == "" {
		return errors.New("pandoc: no output file")
	}
	book := EPUB{Identifier: "urn:uuid:00000000-0000-0000-0000-000000000000", Landmarks: f.Landmarks}
	if metadataFile != "" {
		data, err := os.ReadFile(metadataFile)
		if err != nil {
			return err
		}
		var meta struct {
			Title      string   `yaml:"title"`
			Author     []string `yaml:"author"`
			Rights     string   `yaml:"rights"`
			Subject    []string `yaml:"subject"`
			Identifier string   `yaml:"identifier"`
			Lang       string   `yaml:"lang"`
		}
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("metadata file: %w", err)
		}
		book.Title = meta.Title
		book.Creator = strings.Join(meta.Author, ", ")
		book.Rights = meta.Rights
		book.Subjects = meta.Subject
		book.Language = meta.Lang
		if meta.Identifier != "" {
			book.Identifier = meta.Identifier
		}
	}
	data, err := book.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func positional(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			out = append(out, arg)
		}
	}
	return out
}

func copyArgs(args []string, from, to int) error {
	if to <= from || len(args) <= to {
		return fmt.Errorf("expected input and output, got %v", args)
	}
	data, err := os.ReadFile(args[from])
	if err != nil {
		return err
	}
	return os.WriteFile(args[to], data, 0o644)
}
