package process

import (
	"strings"
	"unicode"
)

// Tokenize splits text into words. A word is a maximal run of letters,
// digits or underscores; everything else separates words.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, isSeparator)
}

// ContentWords lowercases tokens and drops stop words. The result keeps
// token order and repeats, ready for frequency counting.
func ContentWords(tokens []string, stop map[string]struct{}) []string {
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		w := strings.ToLower(tok)
		if _, isStop := stop[w]; isStop {
			continue
		}
		words = append(words, w)
	}
	return words
}

func isSeparator(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
