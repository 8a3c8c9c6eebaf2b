package latex

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	chapterFileRe  = regexp.MustCompile(`(?i)^chapter_(\d{2})\.tex$`)
	chapterBlockRe = regexp.MustCompile(`(\\chapter\{[^}]+\}\s*\\label\{[^}]+\})\s*\\chaptersubtitle\{([^}]*)\}`)
)

// ChapterNumber extracts N from a chapter_NN.tex file name.
func ChapterNumber(name string) (int, bool) {
	m := chapterFileRe.FindStringSubmatch(path.Base(strings.ReplaceAll(name, `\`, "/")))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ConvertSubtitles rewrites \chapter{..}\label{..} followed by
// \chaptersubtitle{S} into the chapter line, a bold "CHAPTER N" line, and an
// uppercase run-in paragraph heading.
func ConvertSubtitles(text string, chapter int) (string, int) {
	count := 0
	out := chapterBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		m := chapterBlockRe.FindStringSubmatch(block)
		count++
		return strings.TrimRight(m[1], " \t\r\n") + "\n" +
			`\noindent\textbf{CHAPTER ` + strconv.Itoa(chapter) + `}\par` + "\n" +
			`\paragraph*{\MakeUppercase{` + strings.TrimSpace(m[2]) + `}}`
	})
	return out, count
}

// ConvertChapterFile applies ConvertSubtitles when name is a chapter_NN.tex
// file and returns text unchanged otherwise.
func ConvertChapterFile(name, text string) (string, int) {
	n, ok := ChapterNumber(name)
	if !ok {
		return text, 0
	}
	return ConvertSubtitles(text, n)
}

// SubtitleHook returns a FileHook running ConvertChapterFile on every
// flattened file. A non-nil count accumulates the blocks rewritten.
func SubtitleHook(count *int) FileHook {
	return func(name, text string) (string, error) {
		out, n := ConvertChapterFile(name, text)
		if count != nil {
			*count += n
		}
		return out, nil
	}
}
