package keyword

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/inspol/policyrag/common/logger"
)

// Extractor produces the de-duplicated, insertion-ordered noun keywords of a
// query. Both lexical search and re-ranking consume this list, so the two
// stay aligned on what counts as a keyword.
type Extractor interface {
	Extract(query string) []string
}

// RuleExtractor segments Korean text without a morphological analyzer: an
// eojeol is kept whole (compounds such as 면책기간 stay one keyword), trailing
// particles are stripped, and predicate/question forms are filtered out. It
// is deterministic and dependency-free; any other Extractor implementation can
// be used in its place.
type RuleExtractor struct{}

// NewRuleExtractor returns the default extractor.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

var nonWordRe = regexp.MustCompile(`[^0-9A-Za-z가-힣\s]`)

// Extract implements Extractor.
func (e *RuleExtractor) Extract(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}

	clean := nonWordRe.ReplaceAllString(query, " ")
	words := strings.Fields(clean)

	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if isPredicate(word) {
			continue
		}
		word = stripParticle(word)
		if word == "" {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if !keep(word) {
			continue
		}
		keywords = append(keywords, word)
	}

	keywords = lo.Uniq(keywords)
	if len(keywords) == 0 {
		logger.Debugf("keyword: no nouns survived filtering for %q", query)
	}
	return keywords
}

// keep applies the length filter: two or more characters, or a listed
// single-character domain atom.
func keep(word string) bool {
	runes := []rune(word)
	if len(runes) >= 2 {
		return true
	}
	_, ok := importantSingleChar[word]
	return ok
}

// stripParticle removes one trailing particle, longest match first. The stem
// must keep at least one character.
func stripParticle(word string) string {
	for _, p := range particles {
		if strings.HasSuffix(word, p) && len([]rune(word)) > len([]rune(p)) {
			return strings.TrimSuffix(word, p)
		}
	}
	return word
}

func isPredicate(word string) bool {
	for _, e := range predicateEndings {
		if strings.HasSuffix(word, e) && len([]rune(word)) > len([]rune(e)) {
			return true
		}
	}
	return false
}
