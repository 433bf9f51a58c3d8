package llm

import (
	"regexp"
	"strings"
)

// LLM responses carry no structural guarantee, so every extractor here is
// best-effort with an explicit fallback value. None of them return errors:
// a malformed response degrades to "nothing found", never to a failure.

var (
	listRe   = regexp.MustCompile(`(?s)\[.*?\]`)
	quotedRe = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
)

// ExtractList finds the first bracket-delimited list literal in the response
// and returns the quoted string items inside it, in order. Returns nil when
// no list-shaped substring exists or it contains no quoted items.
func ExtractList(response string) []string {
	list := listRe.FindString(response)
	if list == "" {
		return nil
	}

	var items []string
	for _, m := range quotedRe.FindAllStringSubmatch(list, -1) {
		if m[1] != "" {
			items = append(items, m[1])
		} else if m[2] != "" {
			items = append(items, m[2])
		}
	}
	return items
}

// ExtractCodeBlock returns the contents of the first fenced code section in
// the response. The opening fence may carry a language tag (```python).
// Everything outside the fence is discarded; with no fence at all the result
// is the empty string.
func ExtractCodeBlock(response string) string {
	var (
		inBlock bool
		started bool
		lines   []string
	)

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && !started && strings.HasPrefix(trimmed, "```"):
			inBlock = true
			started = true
		case inBlock && trimmed == "```":
			return strings.Join(lines, "\n")
		case inBlock:
			lines = append(lines, line)
		}
	}

	// Unterminated fence: return what was collected rather than nothing.
	return strings.Join(lines, "\n")
}

// StripFences removes a surrounding markdown code fence (```json ... ``` or
// plain ``` ... ```) so the remainder can be fed to a JSON decoder. Input
// without fences is returned trimmed.
func StripFences(response string) string {
	cleaned := response
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	} else if strings.Contains(cleaned, "```") {
		parts := strings.SplitN(cleaned, "```", 3)
		if len(parts) >= 2 {
			cleaned = parts[1]
			// Drop a leading language tag left on the fence line.
			if nl := strings.Index(cleaned, "\n"); nl >= 0 {
				first := strings.TrimSpace(cleaned[:nl])
				if first != "" && !strings.ContainsAny(first, "{[") {
					cleaned = cleaned[nl+1:]
				}
			}
		}
	}
	return strings.TrimSpace(cleaned)
}
