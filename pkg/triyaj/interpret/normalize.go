package interpret

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// punctuation characters replaced by a single space before matching.
const punctuation = ".,;:!?(){}[]\"'`~"

// Normalize prepares text for matching: Turkish-aware lowercasing (İ→i, I→ı),
// punctuation replaced by spaces, whitespace runs collapsed. Both the symptom
// interpreter and the specialty scorer consume this form, so the same input
// always yields the same string.
func Normalize(text string) string {
	lowered := cases.Lower(language.Turkish).String(text)
	replaced := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, lowered)
	return strings.Join(strings.Fields(replaced), " ")
}
