package analyzer

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// TopKeywordCount is how many terms the profile keeps.
	TopKeywordCount = 10
	// UsageKeywordCount is how many of the top terms are checked against the
	// title, description and headings.
	UsageKeywordCount = 5
	// MaxOverlapKeywords caps the title/description intersection.
	MaxOverlapKeywords = 5
)

// Tokenize lowercases text, drops every rune that is not a letter, digit,
// underscore or whitespace and splits the remainder on whitespace.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(text))
	return strings.Fields(cleaned)
}

// TopKeywords counts n-grams of the tokenized text and returns the k most
// frequent. Ties keep the order in which terms first appeared.
func TopKeywords(text string, n, k int) []KeywordCount {
	if n < 1 {
		n = 1
	}
	words := Tokenize(text)

	counts := make(map[string]int)
	var order []string
	for i := 0; i+n <= len(words); i++ {
		term := words[i]
		if n > 1 {
			term = strings.Join(words[i:i+n], " ")
		}
		if _, ok := counts[term]; !ok {
			order = append(order, term)
		}
		counts[term]++
	}

	ranked := make([]KeywordCount, 0, len(order))
	for _, term := range order {
		ranked = append(ranked, KeywordCount{Keyword: term, Count: counts[term]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// wordSet returns the distinct word tokens of s in order of appearance.
func wordSet(s string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}) {
		if !seen[field] {
			seen[field] = true
			words = append(words, field)
		}
	}
	return words
}

// Overlap returns the words shared by title and description, in title order,
// capped at MaxOverlapKeywords.
func Overlap(title, description string) []string {
	inDesc := make(map[string]bool)
	for _, w := range wordSet(description) {
		inDesc[w] = true
	}
	var shared []string
	for _, w := range wordSet(title) {
		if inDesc[w] {
			shared = append(shared, w)
			if len(shared) == MaxOverlapKeywords {
				break
			}
		}
	}
	return shared
}

// AnalyzeKeywords builds the keyword profile of a page.
func AnalyzeKeywords(text, title, description string, headings []string) KeywordProfile {
	profile := KeywordProfile{
		TopKeywords:             TopKeywords(text, 1, TopKeywordCount),
		TitleDescriptionOverlap: Overlap(title, description),
	}

	lowerTitle := strings.ToLower(title)
	lowerDesc := strings.ToLower(description)
	lowerHeadings := strings.ToLower(strings.Join(headings, " "))

	for i, kw := range profile.TopKeywords {
		if i == UsageKeywordCount {
			break
		}
		profile.Usage = append(profile.Usage, KeywordUsage{
			Keyword:       kw.Keyword,
			InTitle:       strings.Contains(lowerTitle, kw.Keyword),
			InDescription: strings.Contains(lowerDesc, kw.Keyword),
			InHeadings:    strings.Contains(lowerHeadings, kw.Keyword),
		})
	}
	return profile
}
