package cache

import (
	"regexp"
	"strings"
)

// stopWords are dropped during keyword extraction: articles, conjunctions,
// common pronouns and auxiliaries that carry no signal for matching
// screening questions against each other.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "your": {}, "yours": {}, "with": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"how": {}, "why": {}, "when": {}, "where": {}, "would": {}, "could": {},
	"should": {}, "will": {}, "can": {}, "may": {}, "might": {}, "have": {},
	"has": {}, "had": {}, "been": {}, "was": {}, "were": {}, "does": {},
	"did": {}, "about": {}, "from": {}, "into": {}, "our": {}, "ours": {},
	"his": {}, "her": {}, "their": {}, "its": {}, "any": {}, "all": {},
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]+`)

// ExtractKeywords lower-cases text, strips non-word characters, splits on
// whitespace, and drops short tokens and stop words. The returned slice has
// no duplicates; order follows first appearance.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Jaccard returns |a ∩ b| / |a ∪ b| over two keyword slices, treating them
// as sets. Returns 0 when either set is empty. The result is always in [0,1].
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, k := range a {
		setA[k] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, k := range b {
		setB[k] = struct{}{}
	}

	intersection := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
