package advisory

import "strings"

// extractJSONBlock returns the first balanced top-level {...} block in the
// text, tolerating code fences, prose prefixes and trailing commentary the
// model may wrap around its JSON answer. Returns "" when no balanced block
// exists. String literals are honored so braces inside them do not count.
func extractJSONBlock(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
