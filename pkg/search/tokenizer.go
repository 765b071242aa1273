package search

import (
	"strings"
	"unicode"
)

// Tokenizer turns raw query text into prefix-match terms: lower-case,
// split on non-alphanumeric runs, drop stop words, then strip one trailing
// "y" from each survivor.
//
// The "y" strip mirrors long-standing upstream behavior that callers and
// stored ranking data depend on ("funny" matches as "funn"). It is kept for
// compatibility; see DESIGN.md before changing it.
type Tokenizer struct {
	stop *StopWords
}

// NewTokenizer creates a tokenizer over the given stop-word set.
func NewTokenizer(stop *StopWords) *Tokenizer {
	return &Tokenizer{stop: stop}
}

// Tokenize returns the surviving terms for a query, in input order. An
// empty result means the query contributes no text filter.
func (t *Tokenizer) Tokenize(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if t.stop.Contains(field) {
			continue
		}
		term := strings.TrimSuffix(field, "y")
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
