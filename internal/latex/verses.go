package latex

import (
	"regexp"
	"strings"
)

var (
	hspaceRe        = regexp.MustCompile(`\\hspace\*?\{[^}]*\}`)
	leadingHspaceRe = regexp.MustCompile(`^\s*\\hspace\*?\{[^}]*\}\s*`)
	lineBreakRe     = regexp.MustCompile(`\s*\\\\\s*`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	speakerRe       = regexp.MustCompile(`(?is)^(.+?)\s+(said|says)\s*:\s+(.+)$`)
	trailingRefRe   = regexp.MustCompile(`\(\s*\d+(?:\.\d+)?(?:[–-]\d+(?:\.\d+)?)?\s*\)\s*$`)
)

const indentLatex = `\quad `

// VerseConverter rewrites \Verse[ref]{sa}{en} into a verse environment.
type VerseConverter struct {
	// Macro is the verse macro name without the backslash.
	Macro string
}

// Convert rewrites every occurrence of the verse macro in text and reports
// how many were converted. An occurrence that lacks its two brace groups is
// a *SourceError wrapping ErrMalformed.
func (c VerseConverter) Convert(text string) (string, int, error) {
	macro := strings.TrimPrefix(c.Macro, `\`)
	if macro == "" {
		macro = "Verse"
	}
	match := func(word string) bool { return word == macro }

	var out strings.Builder
	out.Grow(len(text) + len(text)/4)
	count := 0
	last := 0
	pos := 0
	for {
		start, end, _, ok := nextMacro(text, pos, match)
		if !ok {
			break
		}
		if isDefinition(text, start, end) {
			pos = end
			continue
		}

		i := skipSpace(text, end)
		var ref string
		if i < len(text) && text[i] == '[' {
			if ref, i, ok = readOptional(text, i); !ok {
				return "", 0, sourceErrorf(text, start, ErrMalformed, `\%s: unclosed [reference]`, macro)
			}
		}
		i = skipSpace(text, i)
		sa, i, ok := readGroup(text, i)
		if !ok {
			return "", 0, sourceErrorf(text, start, ErrMalformed, `\%s: expected {verse} group`, macro)
		}
		i = skipSpace(text, i)
		en, i, ok := readGroup(text, i)
		if !ok {
			return "", 0, sourceErrorf(text, start, ErrMalformed, `\%s: expected {translation} group`, macro)
		}

		out.WriteString(text[last:start])
		out.WriteString(FormatVerse(ref, sa, en))
		last = i
		pos = i
		count++
	}
	if count == 0 {
		return text, 0, nil
	}
	out.WriteString(text[last:])
	return out.String(), count, nil
}

// FormatVerse renders one verse block. The leading newline keeps \par on a
// line of its own when the macro sat mid-line.
func FormatVerse(ref, sa, en string) string {
	ref = strings.TrimSpace(ref)
	body := appendReference(normalizeTranslation(en), ref)

	var b strings.Builder
	b.WriteString("\n\\par\n\\begin{verse}\n")
	b.WriteString(verseLines(sa))
	b.WriteString("\n\n\\noindent ")
	b.WriteString(body)
	b.WriteString("\n\\end{verse}\n\\par\n")
	return b.String()
}

// verseLines wraps each \\-separated line in \textit and rejoins them.
func verseLines(sa string) string {
	sa = hspaceRe.ReplaceAllString(sa, "")
	parts := lineBreakRe.Split(strings.TrimSpace(sa), -1)
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, `\textit{`+part+`}`)
		}
	}
	return strings.Join(lines, " \\\\\n")
}

func normalizeTranslation(en string) string {
	indent := ""
	if leadingHspaceRe.MatchString(en) {
		indent = indentLatex
	}
	en = leadingHspaceRe.ReplaceAllString(en, "")
	en = hspaceRe.ReplaceAllString(en, "")
	en = lineBreakRe.ReplaceAllString(en, " ")
	en = strings.TrimSpace(whitespaceRe.ReplaceAllString(en, " "))

	if m := speakerRe.FindStringSubmatch(en); m != nil {
		en = strings.TrimSpace(m[1]) + " " + m[2] + `:\linebreak ` + strings.TrimSpace(m[3])
	}
	return indent + en
}

func appendReference(body, ref string) string {
	if ref == "" || trailingRefRe.MatchString(body) {
		return body
	}
	return body + " (" + ref + ")"
}

// isDefinition reports whether the macro at [start,end) is being defined
// rather than used, as in \newcommand{\Verse} or \def\Verse.
func isDefinition(text string, start, end int) bool {
	if end < len(text) && text[end] == '}' {
		return true
	}
	before := strings.TrimRight(text[:start], " \t{")
	for _, def := range []string{`\def`, `\gdef`, `\edef`, `\let`, `\newcommand`, `\renewcommand`, `\providecommand`, `\newcommand*`, `\renewcommand*`} {
		if strings.HasSuffix(before, def) {
			return true
		}
	}
	return false
}
