package indexing

import (
	"regexp"
	"slices"
	"unicode/utf8"
)

var (
	// $4.2 million, $1,250.00, $300K; the space is only consumed when a scale word follows
	moneyRegex = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{1,2})?(?:\s*(?:million|billion|thousand|M|B|K)\b)?`)

	percentageRegex = regexp.MustCompile(`\d+(?:\.\d+)?%`)

	// Q1 2024 | 2024-03-31 | March 31, 2024
	dateRegex = regexp.MustCompile(`(?:Q[1-4]\s+\d{4}|\d{4}-\d{2}-\d{2}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`)

	tickerRegex = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// tickerStopWords are common uppercase words and acronyms that look like tickers
var tickerStopWords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "ARE": {}, "BUT": {},
	"NOT": {}, "YOU": {}, "ALL": {}, "CAN": {}, "HAD": {},
	"HER": {}, "WAS": {}, "ONE": {}, "OUR": {}, "OUT": {},
	"CEO": {}, "CFO": {}, "COO": {}, "IPO": {}, "USA": {},
}

// ExtractMetadata extracts monetary amounts, percentages, dates and potential
// ticker symbols from text.
// Tickers are deduplicated and sorted; the other lists keep match order.
func ExtractMetadata(text string) Metadata {
	return Metadata{
		MonetaryAmounts:  findAll(moneyRegex, text),
		Percentages:      findAll(percentageRegex, text),
		Dates:            findAll(dateRegex, text),
		PotentialTickers: extractTickers(text),
	}
}

// findAll returns every match in order, never nil
func findAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

func extractTickers(text string) []string {
	seen := make(map[string]struct{})
	tickers := []string{}

	for _, candidate := range tickerRegex.FindAllString(text, -1) {
		if _, stop := tickerStopWords[candidate]; stop {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		tickers = append(tickers, candidate)
	}

	slices.Sort(tickers)
	return tickers
}

// EstimateTokens estimates the token count for a text string
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / CharsPerToken
}
