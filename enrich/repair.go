package enrich

import "strings"

// repairJSON fixes the formatting slips generation models make in JSON
// objects: prose around the object, keys missing one or both quotes, and
// trailing commas. Well-formed input is returned unchanged.
func repairJSON(s string) string {
	s = strings.TrimSpace(s)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}

	src := []rune(s)
	out := make([]rune, 0, len(src)+16)
	inString := false
	escaped := false
	expectKey := false

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			out = append(out, ch)
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

		switch {
		case ch == '"':
			inString = true
			expectKey = false
			out = append(out, ch)
		case ch == '{' || ch == ',':
			out = append(out, ch)
			expectKey = ch == '{' || insideObject(out)
		case ch == '}' || ch == ']':
			out = trimTrailingComma(out)
			out = append(out, ch)
			expectKey = false
		case expectKey && isKeyStart(ch):
			j := i
			for j < len(src) && isKeyRune(src[j]) {
				j++
			}
			key := strings.TrimSpace(string(src[i:j]))
			switch {
			case j+1 < len(src) && src[j] == '"' && src[j+1] == ':':
				// opening quote missing: name":
				out = append(out, '"')
				out = append(out, []rune(key)...)
				out = append(out, '"', ':')
				i = j + 1
			case j < len(src) && src[j] == ':':
				// both quotes missing: name:
				out = append(out, '"')
				out = append(out, []rune(key)...)
				out = append(out, '"', ':')
				i = j
			default:
				out = append(out, src[i:j]...)
				i = j - 1
			}
			expectKey = false
		default:
			if !isSpace(ch) {
				expectKey = false
			}
			out = append(out, ch)
		}
	}
	return string(out)
}

// insideObject reports whether the innermost open bracket of out is a brace.
func insideObject(out []rune) bool {
	depth := 0
	inString := false
	for i := len(out) - 1; i >= 0; i-- {
		ch := out[i]
		if ch == '"' && (i == 0 || out[i-1] != '\\') {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '}', ']':
			depth++
		case '{':
			if depth == 0 {
				return true
			}
			depth--
		case '[':
			if depth == 0 {
				return false
			}
			depth--
		}
	}
	return false
}

func trimTrailingComma(out []rune) []rune {
	end := len(out)
	for end > 0 && isSpace(out[end-1]) {
		end--
	}
	if end > 0 && out[end-1] == ',' {
		return append(out[:end-1], out[end:]...)
	}
	return out
}

func isKeyStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isKeyRune(r rune) bool {
	return isKeyStart(r) || (r >= '0' && r <= '9') || r == ' '
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
