package latex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncludeNotFound marks an \input or \include whose file does not exist.
	ErrIncludeNotFound = errors.New("include not found")
	// ErrIncludeCycle marks a file that includes itself, directly or not.
	ErrIncludeCycle = errors.New("include cycle")
	// ErrMalformed marks macro usage that cannot be parsed.
	ErrMalformed = errors.New("malformed input")
)

// SourceError locates a failure in a LaTeX file.
type SourceError struct {
	File string
	Line int
	Err  error
}

func (e *SourceError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	case e.File != "":
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErrorf(text string, pos int, marker error, format string, args ...any) error {
	return &SourceError{
		Line: lineAt(text, pos),
		Err:  fmt.Errorf("%w: %s", marker, fmt.Sprintf(format, args...)),
	}
}

func lineAt(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	return strings.Count(text[:pos], "\n") + 1
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// nextMacro finds the next control word at or after from whose name satisfies
// match. Comments and control symbols such as \% and \\ are skipped.
func nextMacro(text string, from int, match func(string) bool) (start, end int, name string, ok bool) {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '%':
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				return 0, 0, "", false
			}
			i += nl
		case '\\':
			j := i + 1
			for j < len(text) && isLetter(text[j]) {
				j++
			}
			if j == i+1 {
				i++
				continue
			}
			if word := text[i+1 : j]; match(word) {
				return i, j, word, true
			}
			i = j - 1
		}
	}
	return 0, 0, "", false
}

// readGroup parses a balanced {...} group starting at pos and returns its
// content and the index after the closing brace.
func readGroup(text string, pos int) (string, int, bool) {
	if pos >= len(text) || text[pos] != '{' {
		return "", pos, false
	}
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '%':
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				return "", pos, false
			}
			i += nl
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[pos+1 : i], i + 1, true
			}
		}
	}
	return "", pos, false
}

// readOptional parses a [...] argument starting at pos. Brackets inside
// braces do not terminate it.
func readOptional(text string, pos int) (string, int, bool) {
	if pos >= len(text) || text[pos] != '[' {
		return "", pos, false
	}
	depth := 0
	for i := pos + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case ']':
			if depth <= 0 {
				return text[pos+1 : i], i + 1, true
			}
		}
	}
	return "", pos, false
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && isSpace(text[pos]) {
		pos++
	}
	return pos
}

// skipSpaceAndComments advances over whitespace and % comments.
func skipSpaceAndComments(text string, pos int) int {
	for pos < len(text) {
		switch {
		case isSpace(text[pos]):
			pos++
		case text[pos] == '%':
			nl := strings.IndexByte(text[pos:], '\n')
			if nl < 0 {
				return len(text)
			}
			pos += nl + 1
		default:
			return pos
		}
	}
	return pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == '\v'
}

func nameSet(names []string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.TrimPrefix(n, `\`)] = struct{}{}
	}
	return func(word string) bool {
		_, ok := set[word]
		return ok
	}
}
