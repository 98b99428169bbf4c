package chunk

import (
	"strings"
	"unicode"
)

// abbreviations never end a sentence. Keys are lower case without the final
// period. Units such as "mg" are deliberately absent: "10 mg." followed by a
// capitalized word closes the sentence.
var abbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "st": {}, "jr": {}, "sr": {},
	"approx": {}, "vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "cf": {}, "viz": {},
	"no": {}, "nos": {}, "fig": {}, "figs": {}, "vol": {}, "ref": {}, "refs": {},
	"inc": {}, "ltd": {}, "co": {}, "corp": {},
}

// SplitSentences splits text into sentences. Newlines always separate, and
// within a line a sentence ends at '.', '!' or '?' (plus any closing quotes or
// brackets) followed by whitespace and a capital letter, digit, quote or
// opening bracket. A period does not end a sentence after a known
// abbreviation such as "Dr." or "e.g.", a single initial, or an enumeration
// number at the start of a sentence. Other dotted forms like "U.S." end a
// sentence when a capitalized word follows.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, splitLine(strings.TrimSpace(line))...)
	}
	return out
}

func splitLine(line string) []string {
	if line == "" {
		return nil
	}
	runes := []rune(line)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[end]) {
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next >= len(runes) || !startsSentence(runes[next]) {
			continue
		}
		if r == '.' && !periodEnds(runes[start:i]) {
			continue
		}
		out = append(out, strings.TrimSpace(string(runes[start:end])))
		start = next
		i = next - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

// periodEnds reports whether a period after sentence ends the sentence.
func periodEnds(sentence []rune) bool {
	wordStart := len(sentence)
	for wordStart > 0 && !unicode.IsSpace(sentence[wordStart-1]) {
		wordStart--
	}
	word := strings.TrimLeft(string(sentence[wordStart:]), "([{\"'")
	if word == "" {
		return true
	}
	lower := strings.ToLower(word)

	if _, ok := abbreviations[lower]; ok {
		return false
	}
	if isInitial(word) {
		return false
	}
	if isNumber(word) && strings.TrimSpace(string(sentence[:wordStart])) == "" {
		return false
	}
	return true
}

func isInitial(word string) bool {
	runes := []rune(word)
	return len(runes) == 1 && unicode.IsLetter(runes[0])
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return word != ""
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}

func startsSentence(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}
