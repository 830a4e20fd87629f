package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supported lists the target languages the synthesis engine is known to
// handle well. Other languages are allowed but produce a quality warning.
var supported = map[string]struct{}{
	"en": {}, "hi": {}, "ur": {}, "es": {}, "fr": {}, "de": {},
	"ja": {}, "zh": {}, "ko": {}, "it": {}, "pt": {}, "ru": {}, "ar": {},
}

// Normalize parses a language identifier (BCP 47 tag, ISO code, or common
// variant) and returns the ISO 639-1 base code the engines expect.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("language: empty code")
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("language: parse %q: %w", trimmed, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// IsSupported reports whether the normalized code is in the known-good set.
func IsSupported(code string) bool {
	_, ok := supported[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// DisplayName returns the English display name for a language code, or the
// code itself when it cannot be resolved.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
