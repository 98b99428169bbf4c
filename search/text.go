package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "do": {}, "for": {}, "from": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "not": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "which": {},
	"with": {}, "you": {},
}

// terms lowercases text and splits it on anything that is neither a letter
// nor a digit, so "once-daily" yields "once" and "daily". Stop words are dropped.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// verbatim reports whether text contains every query term. A query made
// only of stop words never matches.
func verbatim(text string, queryTerms []string) bool {
	if len(queryTerms) == 0 {
		return false
	}
	present := make(map[string]struct{})
	for _, t := range terms(text) {
		present[t] = struct{}{}
	}
	for _, q := range queryTerms {
		if _, ok := present[q]; !ok {
			return false
		}
	}
	return true
}
