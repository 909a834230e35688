// Package tokenizer turns raw text into index terms. The same policy is used
// at index time and query time so that terms match exactly.
//
// Policy (PolicyVersion): NFKC normalisation, full Unicode case folding,
// splitting on runs of non letter/digit runes while keeping joiners
// (apostrophe, hyphen, period, underscore) that sit between two letters or
// digits, and removing a fixed English stop-word list. There is no stemming
// and no minimum token length.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PolicyVersion identifies the normalisation policy and stop-word list.
// Reports record it; bump it whenever either changes.
const PolicyVersion = "qe-tok-1"

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token represents a single normalised term and its position among the
// kept tokens of the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into normalised Tokens with stop-words removed.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []Token {
	words := split(normalize(text))
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		if !keep(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: len(tokens),
		})
	}
	return tokens
}

// Terms returns only the term strings of Tokenize(text), in order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

// Normalize maps a single word through the same policy and reports whether
// it survives as exactly one term. Expansion sources use it to validate the
// terms they propose.
func Normalize(word string) (string, bool) {
	terms := Terms(word)
	if len(terms) != 1 {
		return "", false
	}
	return terms[0], true
}

// IsStopWord reports whether the folded term is in the stop-word list.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

func normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "’", "'")
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(text)
}

func split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	words := make([]string, 0, len(runes)/5+1)
	start := -1
	for i, r := range runes {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && isJoiner(r) && i+1 < len(runes) && isWordRune(runes[i+1]) {
			continue
		}
		if start >= 0 {
			words = append(words, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, string(runes[start:]))
	}
	return words
}

func keep(word string) bool {
	_, isStop := stopWords[word]
	return !isStop
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isJoiner(r rune) bool {
	switch r {
	case '\'', '-', '.', '_':
		return true
	}
	return false
}
