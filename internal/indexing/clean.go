package indexing

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// typographyReplacer maps curly quotes, backticks and dash variants to ASCII
var typographyReplacer = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"`", "'",
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
)

// CleanText normalizes text for downstream processing.
//
// It applies NFKC normalization, standardizes quotes and dashes, drops control
// characters other than newline and tab, and collapses whitespace inside each
// paragraph while keeping blank-line paragraph breaks.
func CleanText(text string) string {
	normalized := norm.NFKC.String(text)
	normalized = typographyReplacer.Replace(normalized)

	normalized = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, normalized)

	paragraphs := strings.Split(normalized, ParagraphSeparator)
	cleaned := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		// Fields splits on any Unicode whitespace, which trims and collapses in one pass
		para = strings.Join(strings.Fields(para), " ")
		if para != "" {
			cleaned = append(cleaned, para)
		}
	}

	return strings.Join(cleaned, ParagraphSeparator)
}
