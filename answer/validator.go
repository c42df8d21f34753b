package answer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/llm"
	"github.com/inspol/policyrag/metrics"
	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
)

// Validator scores an answer on four independent axes and combines them into
// a weighted confidence. The axes run sequentially: the two remote ones
// (clause lookup, hallucination) each want a stable session, and the saving
// from parallelizing them is small next to the inference budget.
type Validator struct {
	LLM   llm.Client
	Store store.ChunkStore

	// ReliableThreshold is the confidence at which the answer is accepted.
	ReliableThreshold float64
}

var (
	clauseRe        = regexp.MustCompile(`제\s*(\d+)\s*조`)
	referenceRe     = regexp.MustCompile(`\[참조\s*\d+\]`)
	answerKeywordRe = regexp.MustCompile(`[가-힣a-zA-Z0-9]{3,}`)
)

const (
	checkNameFormat        = "format"
	checkNameContext       = "context_match"
	checkNameClause        = "clause_existence"
	checkNameHallucination = "hallucination"

	contextMatchPass    = 0.7
	clauseExistencePass = 0.8
	validationContextCap = 1000
)

// Validate runs all four checks and assembles the report.
func (v *Validator) Validate(ctx context.Context, answer string, results []schema.SearchResult) schema.ValidationReport {
	start := time.Now()
	var warnings []string

	format := v.checkFormat(answer, results, &warnings)
	contextMatch := v.checkContextMatch(answer, results)
	clause := v.checkClauseExistence(ctx, answer, &warnings)
	hallucination := v.checkHallucination(ctx, answer, results, &warnings)

	confidence := schema.Confidence(hallucination.Score, contextMatch.Score, clause.Score, format.Score)
	threshold := v.ReliableThreshold
	if threshold <= 0 {
		threshold = schema.ReliableThreshold
	}

	metrics.ObserveConfidence(confidence)

	return schema.ValidationReport{
		ConfidenceScore: confidence,
		IsReliable:      confidence >= threshold,
		Hallucination:   hallucination,
		ClauseExistence: clause,
		ContextMatch:    contextMatch,
		Format:          format,
		ValidationTime:  time.Since(start),
		Warnings:        warnings,
	}
}

// checkFormat verifies the two mandatory structure markers and at least one
// reference token. Clause numbering is tracked but optional; a warning fires
// when the sources carried clause numbers and the answer cites none.
func (v *Validator) checkFormat(answer string, results []schema.SearchResult, warnings *[]string) schema.ValidationDetail {
	hasStructure := strings.Contains(answer, "📌 답변") && strings.Contains(answer, "📋 관련 약관")
	hasReferences := referenceRe.MatchString(answer)
	hasClauses := clauseRe.MatchString(answer)

	sourcesHaveClauses := false
	for _, r := range results {
		if r.ClauseNumber != "" && r.ClauseNumber != "N/A" {
			sourcesHaveClauses = true
			break
		}
	}
	if sourcesHaveClauses && !hasClauses {
		*warnings = append(*warnings, "sources carry clause numbers but the answer cites none")
	}

	passedCount := 0
	if hasStructure {
		passedCount++
	}
	if hasReferences {
		passedCount++
	}

	return schema.ValidationDetail{
		Name:    checkNameFormat,
		Passed:  hasStructure && hasReferences,
		Score:   float64(passedCount) / 2,
		Details: fmt.Sprintf("structure=%v references=%v clauses=%v", hasStructure, hasReferences, hasClauses),
	}
}

// checkContextMatch measures what fraction of the answer's keywords occur
// literally in the concatenated sources.
func (v *Validator) checkContextMatch(answer string, results []schema.SearchResult) schema.ValidationDetail {
	keywords := lo.Uniq(answerKeywordRe.FindAllString(answer, -1))
	if len(keywords) == 0 {
		return schema.ValidationDetail{
			Name: checkNameContext, Passed: true, Score: 1.0,
			Details: "no keywords extracted (N/A)",
		}
	}
	if len(results) == 0 {
		return schema.ValidationDetail{
			Name: checkNameContext, Passed: false, Score: 0,
			Details: "no sources to match against",
		}
	}

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Content)
		b.WriteByte(' ')
	}
	allContent := b.String()

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(allContent, kw) {
			matched++
		}
	}
	score := float64(matched) / float64(len(keywords))

	return schema.ValidationDetail{
		Name:    checkNameContext,
		Passed:  score >= contextMatchPass,
		Score:   score,
		Details: fmt.Sprintf("%d/%d keywords matched", matched, len(keywords)),
	}
}

// checkClauseExistence verifies that every clause the answer cites exists in
// active documents. A store outage scores the axis 0.5 with a warning rather
// than failing the answer.
func (v *Validator) checkClauseExistence(ctx context.Context, answer string, warnings *[]string) schema.ValidationDetail {
	clauses := extractClauses(answer)
	if len(clauses) == 0 {
		return schema.ValidationDetail{
			Name: checkNameClause, Passed: true, Score: 1.0,
			Details: "no clauses mentioned (N/A)",
		}
	}
	if v.Store == nil {
		*warnings = append(*warnings, "chunk store unavailable for clause verification")
		return schema.ValidationDetail{
			Name: checkNameClause, Passed: true, Score: 0.5,
			Details: "store unavailable",
		}
	}

	existing, err := v.Store.ClauseNumbersExist(ctx, clauses)
	if err != nil {
		logger.Errorf("validator: clause lookup failed: %v", err)
		*warnings = append(*warnings, "clause verification failed")
		return schema.ValidationDetail{
			Name: checkNameClause, Passed: false, Score: 0.5,
			Details: fmt.Sprintf("lookup error: %v", err),
		}
	}

	found := 0
	var missing []string
	for _, clause := range clauses {
		if existing[clause] {
			found++
		} else {
			missing = append(missing, clause)
		}
	}
	score := float64(found) / float64(len(clauses))

	details := fmt.Sprintf("%d/%d clauses exist", found, len(clauses))
	if len(missing) > 0 {
		details += ", missing: " + strings.Join(missing, ", ")
	}
	return schema.ValidationDetail{
		Name:    checkNameClause,
		Passed:  score >= clauseExistencePass,
		Score:   score,
		Details: details,
	}
}

const hallucinationSystemPrompt = `당신은 답변 검증 전문가입니다. 답변이 제공된 컨텍스트에만 근거하는지 확인하세요.`

const hallucinationPromptFormat = `컨텍스트:
%s

답변:
%s

이 답변이 컨텍스트에 근거합니까? JSON 형식으로만 답변하세요:
{"grounded": true/false, "score": 0.0-1.0, "reason": "이유"}`

// checkHallucination asks the cheaper model for a grounding verdict on the
// answer against a trimmed source bundle. Parse or API failures score 0.5
// with a warning; the axis never fails the answer on its own.
func (v *Validator) checkHallucination(ctx context.Context, answer string, results []schema.SearchResult, warnings *[]string) schema.ValidationDetail {
	contextText := buildValidationContext(results)
	prompt := fmt.Sprintf(hallucinationPromptFormat, contextText, answer)

	completion, err := v.LLM.CompleteValidation(ctx, hallucinationSystemPrompt, prompt)
	if err != nil {
		logger.Warnf("validator: hallucination call failed: %v", err)
		*warnings = append(*warnings, "hallucination check unavailable")
		return schema.ValidationDetail{
			Name: checkNameHallucination, Passed: true, Score: 0.5,
			Details: "check unavailable (neutral)",
		}
	}

	parsed, ok := llm.ExtractJSON(completion.Text)
	if !ok {
		*warnings = append(*warnings, "hallucination reply unparseable")
		return schema.ValidationDetail{
			Name: checkNameHallucination, Passed: true, Score: 0.5,
			Details: "unparseable reply (neutral)",
		}
	}

	grounded := parsed.Get("grounded").Bool()
	score := parsed.Get("score").Float()
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	reason := parsed.Get("reason").String()
	if len([]rune(reason)) > 200 {
		reason = string([]rune(reason)[:200])
	}

	return schema.ValidationDetail{
		Name:    checkNameHallucination,
		Passed:  grounded,
		Score:   score,
		Details: reason,
	}
}

// buildValidationContext concatenates source contents, trimmed to keep the
// validation prompt cheap.
func buildValidationContext(results []schema.SearchResult) string {
	if len(results) == 0 {
		return "검색 결과 없음"
	}
	var b strings.Builder
	for idx, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n\n", idx+1, r.Content)
	}
	text := strings.TrimSpace(b.String())
	runes := []rune(text)
	if len(runes) > validationContextCap {
		return string(runes[:validationContextCap]) + "..."
	}
	return text
}

// extractClauses pulls every 제N조 mention, normalized and de-duplicated.
func extractClauses(answer string) []string {
	matches := clauseRe.FindAllStringSubmatch(answer, -1)
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set["제"+m[1]+"조"] = struct{}{}
	}
	clauses := make([]string, 0, len(set))
	for clause := range set {
		clauses = append(clauses, clause)
	}
	sort.Strings(clauses)
	return clauses
}
