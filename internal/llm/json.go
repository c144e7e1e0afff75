package llm

import "strings"

// cleanModelJSON strips Markdown fences and surrounding prose from a model
// response so that only the outermost JSON value remains. Works for both
// arrays and objects.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// If prose still surrounds the JSON, keep only the outermost value.
	open, closing := "[", "]"
	objIdx := strings.Index(s, "{")
	arrIdx := strings.Index(s, "[")
	if arrIdx == -1 || (objIdx != -1 && objIdx < arrIdx) {
		open, closing = "{", "}"
	}
	if start := strings.Index(s, open); start != -1 {
		if end := strings.LastIndex(s, closing); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
