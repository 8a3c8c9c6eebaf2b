package latex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileHook transforms one source file's text before its includes are
// expanded. name is the path relative to the source root.
type FileHook func(name, text string) (string, error)

// Flattener merges \input and \include targets into a single document.
type Flattener struct {
	// Root is the directory include names resolve against.
	Root string
	// Commands lists the include macros, without the backslash.
	Commands []string
	// Hooks run on every file, root document included, in order.
	Hooks []FileHook
}

// FlattenResult is a merged document plus the files read to produce it.
type FlattenResult struct {
	Text  string
	Files []string
}

// Flatten reads mainFile (relative to Root or absolute) and returns the
// document with every include expanded recursively.
func (f *Flattener) Flatten(mainFile string) (FlattenResult, error) {
	commands := f.Commands
	if len(commands) == 0 {
		commands = []string{"input", "include"}
	}
	st := &flattenState{
		flattener: f,
		match:     nameSet(commands),
		active:    map[string]bool{},
	}
	path := mainFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	text, err := st.expand(path)
	if err != nil {
		return FlattenResult{}, err
	}
	return FlattenResult{Text: text, Files: st.files}, nil
}

type flattenState struct {
	flattener *Flattener
	match     func(string) bool
	active    map[string]bool
	files     []string
}

func (s *flattenState) expand(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel := s.relative(abs)
	if s.active[abs] {
		return "", &SourceError{File: rel, Err: fmt.Errorf("%w: %s includes itself", ErrIncludeCycle, rel)}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &SourceError{File: rel, Err: fmt.Errorf("%w: %s", ErrIncludeNotFound, rel)}
		}
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	s.files = append(s.files, rel)
	s.active[abs] = true
	defer delete(s.active, abs)

	text := string(data)
	for _, hook := range s.flattener.Hooks {
		if text, err = hook(rel, text); err != nil {
			return "", wrapSourceFile(rel, err)
		}
	}

	var out strings.Builder
	out.Grow(len(text))
	last := 0
	pos := 0
	for {
		start, end, name, ok := nextMacro(text, pos, s.match)
		if !ok {
			break
		}
		target, next, ok := readIncludeTarget(text, end)
		if !ok {
			return "", &SourceError{File: rel, Line: lineAt(text, start), Err: fmt.Errorf("%w: \\%s without a file name", ErrMalformed, name)}
		}
		resolved, found := s.resolve(target)
		if !found {
			return "", &SourceError{File: rel, Line: lineAt(text, start), Err: fmt.Errorf("%w: \\%s{%s}", ErrIncludeNotFound, name, target)}
		}
		if abs, err := filepath.Abs(resolved); err == nil && s.active[abs] {
			return "", &SourceError{File: rel, Line: lineAt(text, start), Err: fmt.Errorf("%w: \\%s{%s} reenters %s", ErrIncludeCycle, name, target, s.relative(abs))}
		}
		included, err := s.expand(resolved)
		if err != nil {
			return "", err
		}
		out.WriteString(text[last:start])
		out.WriteString(included)
		last = next
		pos = next
	}
	out.WriteString(text[last:])
	return out.String(), nil
}

func (s *flattenState) relative(abs string) string {
	root, err := filepath.Abs(s.flattener.Root)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}

// resolve follows the TeX lookup order: name.tex first, then name as given.
func (s *flattenState) resolve(target string) (string, bool) {
	base := target
	if !filepath.IsAbs(base) {
		base = filepath.Join(s.flattener.Root, filepath.FromSlash(target))
	}
	candidates := []string{base}
	if filepath.Ext(base) != ".tex" {
		candidates = []string{base + ".tex", base}
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return base, false
}

// readIncludeTarget accepts both \input{name} and the primitive form
// \input name.
func readIncludeTarget(text string, pos int) (string, int, bool) {
	i := skipSpace(text, pos)
	if i < len(text) && text[i] == '{' {
		content, next, ok := readGroup(text, i)
		if !ok {
			return "", pos, false
		}
		name := strings.TrimSpace(content)
		return name, next, name != ""
	}
	if i == pos {
		return "", pos, false
	}
	j := i
	for j < len(text) && !isSpace(text[j]) && !strings.ContainsRune(`{}%\`, rune(text[j])) {
		j++
	}
	if j == i {
		return "", pos, false
	}
	return text[i:j], j, true
}

func wrapSourceFile(rel string, err error) error {
	var srcErr *SourceError
	if errors.As(err, &srcErr) && srcErr.File == "" {
		srcErr.File = rel
		return srcErr
	}
	return &SourceError{File: rel, Err: err}
}
