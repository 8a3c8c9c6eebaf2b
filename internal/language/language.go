package language

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// namedCodes are the languages that may be given by English name. Anything
// else must be written as a tag or code.
var namedCodes = []string{
	"en", "sa", "hi", "bn", "ta", "te", "mr", "pi",
	"es", "fr", "de", "it", "pt", "nl", "ru", "pl", "sv", "da", "no", "fi",
	"ja", "ko", "zh", "ar", "el", "la",
}

var (
	byNameOnce sync.Once
	byName     map[string]language.Tag
)

func nameIndex() map[string]language.Tag {
	byNameOnce.Do(func() {
		namer := display.English.Languages()
		byName = make(map[string]language.Tag, len(namedCodes))
		for _, code := range namedCodes {
			tag := language.Make(code)
			if name := namer.Name(tag); name != "" {
				byName[strings.ToLower(name)] = tag
			}
		}
	})
	return byName
}

// Tag returns the canonical BCP 47 form of value. Underscores are accepted
// as subtag separators and ISO 639-2 codes fold to their two-letter form.
func Tag(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty language")
	}
	if tag, ok := nameIndex()[strings.ToLower(value)]; ok {
		return tag.String(), nil
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unrecognised language %q: %w", value, err)
	}
	return tag.String(), nil
}

// Name returns the English display name for a tag, or the tag itself when
// it has none.
func Name(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return tag
}
