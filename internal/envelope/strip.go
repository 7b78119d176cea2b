package envelope

import "strings"

// StripThinkBlocks removes <think>...</think> reasoning blocks some models emit
// around their JSON. An unclosed block is cut to the end of the string.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// FencedBlock returns the body of the first ```lang fenced block in s.
func FencedBlock(s, lang string) (string, bool) {
	open := "```" + lang
	i := strings.Index(s, open)
	if i == -1 {
		return "", false
	}
	body := s[i+len(open):]
	j := strings.Index(body, "```")
	if j == -1 {
		return "", false
	}
	return strings.TrimSpace(body[:j]), true
}
