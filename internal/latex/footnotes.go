package latex

import (
	"fmt"
	"regexp"
	"strings"
)

// FootnoteEnvironment is the quotation environment whose footnote marks are
// merged with the footnote texts that follow it.
const FootnoteEnvironment = "customquote"

var footnoteMarkRe = regexp.MustCompile(`\\footnotemark\b`)

// MergeFootnotes rewrites each \begin{customquote}...\end{customquote} block
// followed by \footnotetext{...} groups: the block's \footnotemark commands
// become \footnote{text} in order and the consumed footnote texts are removed.
// Surplus marks and surplus texts stay as they are. An unclosed block ends
// processing and is left untouched.
func MergeFootnotes(text string) (string, int, error) {
	begin := `\begin{` + FootnoteEnvironment + `}`
	end := `\end{` + FootnoteEnvironment + `}`

	var out strings.Builder
	merged := 0
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], begin)
		if start < 0 {
			break
		}
		start += i
		closeAt := strings.Index(text[start+len(begin):], end)
		if closeAt < 0 {
			break
		}
		blockEnd := start + len(begin) + closeAt + len(end)

		var notes []string
		consumed := blockEnd
		j := skipSpaceAndComments(text, blockEnd)
		for strings.HasPrefix(text[j:], `\footnotetext`) {
			k := skipSpaceAndComments(text, j+len(`\footnotetext`))
			if k >= len(text) || text[k] != '{' {
				break
			}
			note, after, ok := readGroup(text, k)
			if !ok {
				return "", 0, sourceErrorf(text, k, ErrMalformed, `unbalanced braces in \footnotetext`)
			}
			notes = append(notes, note)
			consumed = after
			j = skipSpaceAndComments(text, after)
		}
		if len(notes) == 0 {
			out.WriteString(text[i:blockEnd])
			i = blockEnd
			continue
		}

		used := 0
		block := footnoteMarkRe.ReplaceAllStringFunc(text[start:blockEnd], func(mark string) string {
			if used >= len(notes) {
				return mark
			}
			note := notes[used]
			used++
			return fmt.Sprintf(`\footnote{%s}`, note)
		})
		if used == 0 {
			out.WriteString(text[i:blockEnd])
			i = blockEnd
			continue
		}
		merged += used
		out.WriteString(text[i:start])
		out.WriteString(block)
		for _, note := range notes[used:] {
			out.WriteString("\n\\footnotetext{" + note + "}")
		}
		i = consumed
	}
	if merged == 0 {
		return text, 0, nil
	}
	out.WriteString(text[i:])
	return out.String(), merged, nil
}
