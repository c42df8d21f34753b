package structure

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/inspol/policyrag/schema"
)

// Analyzer recognizes the hierarchical elements of Korean policy text
// (article / ho / mok / item / subitem) and judges whether a chunk begins and
// ends at natural semantic boundaries.
type Analyzer struct{}

// New returns a structure analyzer.
func New() *Analyzer { return &Analyzer{} }

// ElementType names one level of the five-level hierarchy.
type ElementType string

const (
	ElemArticle ElementType = "article" // 제N조 / 제N장 / 제N절
	ElemHo      ElementType = "ho"      // 가. / (가) / ㄱ.
	ElemMok     ElementType = "mok"     // 1. / (1) / 1)
	ElemItem    ElementType = "item"    // ① / ㉠
	ElemSubitem ElementType = "subitem" // a. / (a) / a)
)

var levelOf = map[ElementType]int{
	ElemArticle: 1,
	ElemHo:      2,
	ElemMok:     3,
	ElemItem:    4,
	ElemSubitem: 5,
}

var elementOrder = []ElementType{ElemArticle, ElemHo, ElemMok, ElemItem, ElemSubitem}

var elementPatterns = map[ElementType][]*regexp.Regexp{
	ElemArticle: {
		regexp.MustCompile(`^제\s*(\d+)\s*조`),
		regexp.MustCompile(`^제\s*(\d+)\s*장`),
		regexp.MustCompile(`^제\s*(\d+)\s*절`),
	},
	ElemHo: {
		regexp.MustCompile(`^\s*([가-힣])\.\s`),
		regexp.MustCompile(`^\s*\(([가-힣])\)`),
		regexp.MustCompile(`^\s*([ㄱ-ㅎ])\.\s`),
	},
	ElemMok: {
		regexp.MustCompile(`^\s*(\d+)\.\s`),
		regexp.MustCompile(`^\s*\((\d+)\)`),
		regexp.MustCompile(`^\s*(\d+)\)\s`),
	},
	ElemItem: {
		regexp.MustCompile(`^\s*([①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮])`),
		regexp.MustCompile(`^\s*([㉠㉡㉢㉣㉤㉥㉦㉧㉨㉩])`),
	},
	ElemSubitem: {
		regexp.MustCompile(`^\s*([a-z])\.\s`),
		regexp.MustCompile(`^\s*\(([a-z])\)`),
		regexp.MustCompile(`^\s*([a-z])\)\s`),
	},
}

var circleNumbers = map[string]int{
	"①": 1, "②": 2, "③": 3, "④": 4, "⑤": 5,
	"⑥": 6, "⑦": 7, "⑧": 8, "⑨": 9, "⑩": 10,
	"⑪": 11, "⑫": 12, "⑬": 13, "⑭": 14, "⑮": 15,
}

var hangulOrder = map[string]int{
	"가": 1, "나": 2, "다": 3, "라": 4, "마": 5,
	"바": 6, "사": 7, "아": 8, "자": 9, "차": 10,
}

// Element is one detected hierarchy marker.
type Element struct {
	Text    string
	Value   string
	Line    string
	LineNum int
	Level   int
}

// Structure holds all detected elements grouped by level.
type Structure struct {
	Elements     map[ElementType][]Element
	HighestLevel int // 0 when nothing detected
	LowestLevel  int
}

// Continuity reports ordering issues within one element family.
type Continuity struct {
	Continuous bool
	Issues     []SequenceIssue
}

// SequenceIssue is one numbering defect: a family not starting at 1 or a gap
// in the middle.
type SequenceIssue struct {
	Kind    string // not_start_from_one | gap
	From    int
	To      int
	Missing []int
	Message string
}

// Completeness is the analyzer's boundary verdict on one chunk.
type Completeness struct {
	IsComplete     bool
	StartTruncated bool
	EndTruncated   bool
	Direction      schema.ExpandDirection
	Structure      Structure
	Reasons        []string
	FrontIssues    []string
	BackIssues     []string
}

// Analyze detects every hierarchy marker in the content. A line contributes
// at most one element, the highest level that matches.
func (a *Analyzer) Analyze(content string) Structure {
	s := Structure{Elements: make(map[ElementType][]Element, len(elementOrder))}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	for lineNum, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, typ := range elementOrder {
			matched := false
			for _, re := range elementPatterns[typ] {
				if m := re.FindStringSubmatch(trimmed); m != nil {
					value := m[0]
					if len(m) > 1 {
						value = m[1]
					}
					s.Elements[typ] = append(s.Elements[typ], Element{
						Text:    strings.TrimSpace(m[0]),
						Value:   value,
						Line:    trimmed,
						LineNum: lineNum,
						Level:   levelOf[typ],
					})
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}

	for _, typ := range elementOrder {
		if len(s.Elements[typ]) == 0 {
			continue
		}
		level := levelOf[typ]
		if s.HighestLevel == 0 || level < s.HighestLevel {
			s.HighestLevel = level
		}
		if level > s.LowestLevel {
			s.LowestLevel = level
		}
	}
	return s
}

// CheckSequence verifies that a family's numbering starts at 1 and has no
// gaps.
func (a *Analyzer) CheckSequence(items []Element, typ ElementType) Continuity {
	if len(items) == 0 {
		return Continuity{Continuous: true}
	}

	numbers := make([]int, 0, len(items))
	for _, item := range items {
		var num int
		switch typ {
		case ElemItem:
			num = circleNumbers[item.Value]
		case ElemHo:
			num = hangulOrder[item.Value]
		case ElemMok, ElemSubitem:
			num, _ = strconv.Atoi(item.Value)
		}
		if num > 0 {
			numbers = append(numbers, num)
		}
	}
	if len(numbers) == 0 {
		return Continuity{Continuous: true}
	}
	sort.Ints(numbers)

	var issues []SequenceIssue
	if numbers[0] != 1 {
		issues = append(issues, SequenceIssue{
			Kind:    "not_start_from_one",
			From:    numbers[0],
			Message: fmt.Sprintf("%s numbering starts at %d, not 1", typ, numbers[0]),
		})
	}
	for i := 0; i < len(numbers)-1; i++ {
		if numbers[i+1]-numbers[i] > 1 {
			missing := make([]int, 0, numbers[i+1]-numbers[i]-1)
			for n := numbers[i] + 1; n < numbers[i+1]; n++ {
				missing = append(missing, n)
			}
			issues = append(issues, SequenceIssue{
				Kind:    "gap",
				From:    numbers[i],
				To:      numbers[i+1],
				Missing: missing,
				Message: fmt.Sprintf("%s numbering jumps %d to %d (missing %v)", typ, numbers[i], numbers[i+1], missing),
			})
		}
	}
	return Continuity{Continuous: len(issues) == 0, Issues: issues}
}

var incompleteStartPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`^\.{2,}`), "starts with ellipsis"},
	{regexp.MustCompile(`^[)\]}"'」』]`), "starts with closing bracket or quote"},
	{regexp.MustCompile(`^(한다|하여|된다|되어|있다|없다|이다)`), "starts with a verb ending"},
	{regexp.MustCompile(`^[을를의에게는이가와과도]\s`), "starts with a bare particle"},
	{regexp.MustCompile(`^\)[와과를을의에]`), "starts with bracket and particle"},
}

var (
	terminalPunctRe   = regexp.MustCompile(`[.!?。]$`)
	trailingParticleRe = regexp.MustCompile(`(는|은|을|를|가|이|에|의|와|과|하|된|하여)\s*$`)
)

// CheckCompleteness combines start/end signals and derives the expansion
// direction: both ends truncated yields both; one side yields prev or next.
func (a *Analyzer) CheckCompleteness(content string) Completeness {
	structure := a.Analyze(content)
	trimmed := strings.TrimSpace(content)

	c := Completeness{Structure: structure, Direction: schema.ExpandNone}
	if trimmed == "" {
		c.StartTruncated = true
		c.EndTruncated = true
		c.Direction = schema.ExpandBoth
		c.Reasons = append(c.Reasons, "empty content")
		return c
	}

	// Front truncation.
	for _, p := range incompleteStartPatterns {
		if p.re.MatchString(trimmed) {
			c.StartTruncated = true
			c.Reasons = append(c.Reasons, p.reason)
			c.FrontIssues = append(c.FrontIssues, p.reason)
			break
		}
	}

	// Lower-level items without their article header mean the chunk starts
	// mid-clause.
	if len(structure.Elements[ElemArticle]) == 0 {
		if len(structure.Elements[ElemHo]) > 0 || len(structure.Elements[ElemMok]) > 0 ||
			len(structure.Elements[ElemItem]) > 0 || len(structure.Elements[ElemSubitem]) > 0 {
			reason := "items present without an article header"
			c.StartTruncated = true
			c.Reasons = append(c.Reasons, reason)
			c.FrontIssues = append(c.FrontIssues, reason)
		}
	}

	for _, typ := range []ElementType{ElemHo, ElemMok, ElemItem} {
		continuity := a.CheckSequence(structure.Elements[typ], typ)
		for _, issue := range continuity.Issues {
			switch issue.Kind {
			case "not_start_from_one":
				c.StartTruncated = true
				c.Reasons = append(c.Reasons, issue.Message)
				c.FrontIssues = append(c.FrontIssues, issue.Message)
			case "gap":
				c.EndTruncated = true
				c.Reasons = append(c.Reasons, issue.Message)
				c.BackIssues = append(c.BackIssues, issue.Message)
			}
		}
	}

	// Back truncation.
	if !terminalPunctRe.MatchString(trimmed) {
		reason := "no sentence-ending punctuation"
		c.EndTruncated = true
		c.Reasons = append(c.Reasons, reason)
		c.BackIssues = append(c.BackIssues, reason)

		if trailingParticleRe.MatchString(trimmed) || danglingTail(trimmed) {
			reason = "dangling particle or fragment at end"
			c.Reasons = append(c.Reasons, reason)
			c.BackIssues = append(c.BackIssues, reason)
		}
	}

	opens := strings.Count(content, "(") + strings.Count(content, "[") + strings.Count(content, "{")
	closes := strings.Count(content, ")") + strings.Count(content, "]") + strings.Count(content, "}")
	if opens > closes {
		reason := "unbalanced opening brackets"
		c.EndTruncated = true
		c.Reasons = append(c.Reasons, reason)
		c.BackIssues = append(c.BackIssues, reason)
	}

	switch {
	case c.StartTruncated && c.EndTruncated:
		c.Direction = schema.ExpandBoth
	case c.StartTruncated:
		c.Direction = schema.ExpandPrev
	case c.EndTruncated:
		c.Direction = schema.ExpandNext
	}
	c.IsComplete = !c.StartTruncated && !c.EndTruncated
	return c
}

// danglingTail reports a 1-2 character final fragment.
func danglingTail(trimmed string) bool {
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return false
	}
	return len([]rune(fields[len(fields)-1])) <= 2
}
