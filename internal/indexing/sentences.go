package indexing

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceBoundaryRegex matches sentence-ending punctuation followed by whitespace.
// \p{Z} and U+0085 extend RE2's ASCII-only \s to Unicode whitespace.
var sentenceBoundaryRegex = regexp.MustCompile(`[.!?]+[\s\p{Z}\x{85}]+`)

// SplitSentences splits text into sentences, keeping each sentence's own
// terminal punctuation. Text after the last boundary is returned as a final
// sentence even without punctuation.
func SplitSentences(text string) []string {
	sentences := []string{}
	lastEnd := 0

	for _, loc := range sentenceBoundaryRegex.FindAllStringIndex(text, -1) {
		// Keep the punctuation, drop the whitespace that triggered the match
		marks := strings.TrimRightFunc(text[loc[0]:loc[1]], unicode.IsSpace)
		punctEnd := loc[0] + len(marks)

		if sentence := strings.TrimSpace(text[lastEnd:punctEnd]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		lastEnd = loc[1]
	}

	if tail := strings.TrimSpace(text[lastEnd:]); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
