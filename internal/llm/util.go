package llm

import "strings"

// CleanJSONBlock strips markdown fences and surrounding prose from a model
// response and returns the first complete JSON object or array it contains.
// Text without any JSON value is returned trimmed.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return text
	}
	if v := extractJSONValue(text); v != "" {
		return v
	}
	if idx := strings.IndexAny(text, "{["); idx > 0 {
		if v := extractJSONValue(text[idx:]); v != "" {
			return v
		}
	}
	return text
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		lang := text[:nl]
		if len(lang) < 20 && !strings.ContainsAny(lang, " {[") {
			text = text[nl+1:]
		}
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

func extractJSONValue(s string) string {
	switch {
	case strings.HasPrefix(s, "{"):
		return extractJSONObject(s)
	case strings.HasPrefix(s, "["):
		return extractJSONArray(s)
	}
	return ""
}

func extractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// extractBalanced returns the prefix of s that closes the bracket s starts
// with, honouring JSON string escapes. It returns "" if s does not start
// with open or never closes.
func extractBalanced(s string, open, close byte) string {
	if s == "" || s[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
