package latex

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var headingPrefixes = map[string]string{
	"chapter":       "chap",
	"section":       "sec",
	"subsection":    "subsec",
	"subsubsection": "subsubsec",
}

var (
	labelRe   = regexp.MustCompile(`\\label\{([^}]+)\}`)
	nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

func isHeading(word string) bool {
	_, ok := headingPrefixes[word]
	return ok
}

// LabelSet records labels already used across a project.
type LabelSet map[string]struct{}

// Collect adds every \label{...} in text to the set.
func (s LabelSet) Collect(text string) {
	for _, m := range labelRe.FindAllStringSubmatch(text, -1) {
		s[m[1]] = struct{}{}
	}
}

// Unique returns base, or base-2, base-3 ... when taken, and reserves it.
func (s LabelSet) Unique(base string) string {
	candidate := base
	for i := 2; ; i++ {
		if _, taken := s[candidate]; !taken {
			s[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Slugify folds text to an ASCII, dash-separated label fragment.
func Slugify(text string) string {
	asciiFold := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })))
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		folded = text
	}
	slug := strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(folded), "-"), "-")
	if slug == "" {
		return "x"
	}
	return slug
}

// AddLabels inserts \label{<prefix>-<slug>} after every chapter, section,
// subsection, and subsubsection heading that is not already followed by a
// label. Labels already in text are added to used before any are generated,
// as are the new ones.
func AddLabels(text string, used LabelSet) (string, int) {
	used.Collect(text)
	var out strings.Builder
	inserted := 0
	last := 0
	pos := 0
	for {
		_, end, name, ok := nextMacro(text, pos, isHeading)
		if !ok {
			break
		}
		pos = end
		i := end
		if i < len(text) && text[i] == '*' {
			i++
		}
		i = skipSpace(text, i)
		if i < len(text) && text[i] == '[' {
			if _, i, ok = readOptional(text, i); !ok {
				continue
			}
			i = skipSpace(text, i)
		}
		title, after, ok := readGroup(text, i)
		if !ok {
			continue
		}
		pos = after
		if strings.HasPrefix(text[skipSpaceAndComments(text, after):], `\label{`) {
			continue
		}

		label := used.Unique(headingPrefixes[name] + "-" + Slugify(strings.TrimSpace(title)))
		out.WriteString(text[last:after])
		out.WriteString(`\label{` + label + `}`)
		last = after
		inserted++
	}
	if inserted == 0 {
		return text, 0
	}
	out.WriteString(text[last:])
	return out.String(), inserted
}
