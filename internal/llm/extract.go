package llm

import (
	"regexp"
	"strings"
)

var (
	jsonFenceRegex  = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	codeFenceRegex  = regexp.MustCompile("```[a-zA-Z0-9+#_-]*[ \t]*\\n([\\s\\S]+?)```")
	thinkTagRegex   = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	openThinkRegex  = regexp.MustCompile(`(?is)^\s*<think(?:ing)?>.*$`)
	closeThinkRegex = regexp.MustCompile(`(?is)^.*?</think(?:ing)?>`)
)

// StripThinkTags removes <think>...</think> reasoning blocks that some
// models put in front of their answer. A reply that starts with a closing
// tag only (the opening tag was consumed upstream) is cut after it; a reply
// with an unterminated opening tag is all reasoning and becomes empty.
func StripThinkTags(s string) string {
	s = thinkTagRegex.ReplaceAllString(s, "")
	if strings.Contains(strings.ToLower(s), "</think") {
		s = closeThinkRegex.ReplaceAllString(s, "")
	}
	s = openThinkRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractJSONObject pulls a JSON object out of a reply that may wrap it in
// a markdown fence or surround it with prose. If no balanced object is
// found the trimmed input is returned unchanged.
func ExtractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if m := jsonFenceRegex.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return s
	}
	if end := findMatchingBracket(s, start, '{', '}'); end != -1 {
		return s[start : end+1]
	}
	if end := strings.LastIndex(s, "}"); end > start {
		return s[start : end+1]
	}
	return s
}

// findMatchingBracket returns the index of the bracket closing the one at
// startPos, skipping brackets inside strings, or -1.
func findMatchingBracket(s string, startPos int, openChar, closeChar byte) int {
	count := 0
	inString := false
	escaped := false

	for i := startPos; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case openChar:
			count++
		case closeChar:
			count--
			if count == 0 {
				return i
			}
		}
	}
	return -1
}

// RepairJSON escapes raw newlines and tabs inside string literals, the most
// common way model output breaks JSON.
func RepairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			b.WriteByte(ch)
			escaped = true
		case ch == '"':
			b.WriteByte(ch)
			inString = !inString
		case inString && ch == '\r':
			b.WriteString(`\n`)
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case inString && ch == '\n':
			b.WriteString(`\n`)
		case inString && ch == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// ParseCodeBlock returns the body of the first fenced code block, or the
// trimmed reply when it has none.
func ParseCodeBlock(s string) string {
	if m := codeFenceRegex.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}
