package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON pulls the first JSON object out of an LLM reply that may be
// wrapped in prose or Markdown code fences. It returns a parsed gjson result
// and false when no valid object can be recovered; callers fall back to their
// documented neutral values and never raise.
func ExtractJSON(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return gjson.Result{}, false
	}

	// Strip code fences first: ```json ... ``` or bare ``` ... ```.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
		text = strings.TrimSpace(text)
	}

	obj, ok := braceMatch(text)
	if !ok {
		return gjson.Result{}, false
	}
	if !gjson.Valid(obj) {
		return gjson.Result{}, false
	}
	return gjson.Parse(obj), true
}

// braceMatch extracts the first balanced {...} span, respecting strings.
func braceMatch(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
