package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/keyword"
	"github.com/inspol/policyrag/schema"
)

// Preprocessor normalizes a user query before retrieval: whitespace collapse,
// domain term spacing, synonym-expanded noun keywords, clause-number
// detection, and incomplete-query advice.
type Preprocessor struct {
	dict      *TermDictionary
	extractor keyword.Extractor
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// clausePrefixedRe matches 제15조 / 제 15 조; clauseBareRe matches 15조.
	clausePrefixedRe = regexp.MustCompile(`제\s*(\d+)\s*조`)
	clauseBareRe     = regexp.MustCompile(`(\d+)\s*조`)
)

// New builds a preprocessor over the given dictionary and extractor.
func New(dict *TermDictionary, extractor keyword.Extractor) *Preprocessor {
	return &Preprocessor{dict: dict, extractor: extractor}
}

// Preprocess runs the full pipeline. It never returns an error: any internal
// failure falls back to identity preprocessing so search can still run.
func (p *Preprocessor) Preprocess(query string) schema.PreprocessedQuery {
	result, err := p.preprocess(query)
	if err != nil {
		logger.Warnf("preprocess: falling back to identity for %q: %v", query, err)
		return schema.PreprocessedQuery{
			Original:      query,
			Normalized:    query,
			Standardized:  query,
			ExpandedTerms: []string{query},
			IsComplete:    true,
		}
	}
	return result
}

func (p *Preprocessor) preprocess(query string) (schema.PreprocessedQuery, error) {
	if p.dict == nil || p.extractor == nil {
		return schema.PreprocessedQuery{}, fmt.Errorf("preprocessor not configured")
	}

	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(query, " "))
	standardized := p.standardize(normalized)

	baseKeywords := p.extractor.Extract(standardized)
	expandedTerms := p.expandSynonyms(baseKeywords)

	clauseNumber := extractClauseNumber(standardized)
	isComplete, suggestions := p.checkCompleteness(standardized)

	logger.Debugf("preprocess: %q -> standardized=%q terms=%v clause=%q complete=%v",
		query, standardized, expandedTerms, clauseNumber, isComplete)

	return schema.PreprocessedQuery{
		Original:      query,
		Normalized:    normalized,
		Standardized:  standardized,
		ExpandedTerms: expandedTerms,
		ClauseNumber:  clauseNumber,
		IsComplete:    isComplete,
		Suggestions:   suggestions,
	}, nil
}

// standardize applies the spacing rules as plain substitutions.
func (p *Preprocessor) standardize(query string) string {
	standardized := query
	for term, replacement := range p.dict.Spacing {
		if strings.Contains(standardized, term) {
			standardized = strings.ReplaceAll(standardized, term, replacement)
		}
	}
	return standardized
}

// expandSynonyms unions the noun keywords of every dictionary entry matching
// a base keyword. Matching is bidirectional: the entry key may contain the
// keyword or the keyword may contain the key.
func (p *Preprocessor) expandSynonyms(baseKeywords []string) []string {
	expanded := make([]string, 0, len(baseKeywords)*2)
	expanded = append(expanded, baseKeywords...)

	for _, kw := range baseKeywords {
		for _, term := range p.dict.synonymKeys {
			if !strings.Contains(kw, term) && !strings.Contains(term, kw) {
				continue
			}
			for _, synonym := range p.dict.Synonyms[term] {
				expanded = append(expanded, p.extractor.Extract(synonym)...)
			}
			expanded = append(expanded, p.extractor.Extract(term)...)
		}
	}

	return lo.Uniq(expanded)
}

// extractClauseNumber finds a clause reference and normalizes it to 제{n}조.
// Both 제15조 and the bare 15조 forms are recognized.
func extractClauseNumber(query string) string {
	if m := clausePrefixedRe.FindStringSubmatch(query); m != nil {
		return "제" + m[1] + "조"
	}
	if m := clauseBareRe.FindStringSubmatch(query); m != nil {
		return "제" + m[1] + "조"
	}
	return ""
}

func (p *Preprocessor) checkCompleteness(query string) (bool, []string) {
	var suggestions []string
	for _, cp := range p.dict.compiled {
		if cp.re.MatchString(query) {
			suggestions = append(suggestions, cp.suggestion)
		}
	}
	return len(suggestions) == 0, suggestions
}
