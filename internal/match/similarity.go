package match

import (
	"strings"
	"unicode"
)

// stopwords are filler tokens that carry no information about an item.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "on": true, "at": true,
	"of": true, "to": true, "for": true, "with": true, "and": true, "or": true,
	"is": true, "was": true, "it": true, "its": true, "my": true, "i": true,
	"this": true, "that": true, "near": true, "by": true, "from": true,
}

// tokenize lowercases the text, splits on anything that isn't a letter or
// digit and drops stopwords and single-character fragments.
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) < 2 && !unicode.IsDigit(rune(f[0])) {
			continue
		}
		if stopwords[f] {
			continue
		}
		tokens[f] = true
	}
	return tokens
}

// Similarity returns the Jaccard overlap of the two texts' token sets,
// in [0, 1]. Empty or stopword-only texts score 0 against anything.
func Similarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for token := range ta {
		if tb[token] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return float64(intersection) / float64(union)
}
