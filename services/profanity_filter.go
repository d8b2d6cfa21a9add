package services

import (
	"strings"
	"unicode"
)

var leetspeak = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't', '@': 'a', '$': 's',
}

// DefaultBannedWords is the built-in list used when none is configured.
var DefaultBannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "bullshit", "bitch", "bastard", "asshole",
	"dick", "cunt", "damn", "crap", "piss", "slut", "whore", "retard", "idiot",
	"stupid", "moron", "dumbass", "motherfucker", "wtf", "stfu",
}

// ProfanityFilter matches whole normalised tokens against a word list.
type ProfanityFilter struct {
	banned map[string]struct{}
}

func NewProfanityFilter(words []string) *ProfanityFilter {
	f := &ProfanityFilter{banned: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = normaliseToken(w); w != "" {
			f.banned[w] = struct{}{}
		}
	}
	return f
}

func tokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '@' || r == '$'
}

func normaliseToken(tok string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tok) {
		if m, ok := leetspeak[r]; ok {
			r = m
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Detect returns the banned words found in text, unique, in first-seen order.
func (f *ProfanityFilter) Detect(text string) []string {
	var found []string
	seen := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !tokenRune(r) }) {
		word := normaliseToken(tok)
		if _, bad := f.banned[word]; !bad {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		found = append(found, word)
	}
	return found
}

func (f *ProfanityFilter) Clean(text string) bool {
	return len(f.Detect(text)) == 0
}
