package fulltext

import (
	"strings"
	"unicode"
)

// Tokenize splits text into raw tokens, like words but a bit more granular.
//
// The input is lower-cased and scanned rune by rune; whitespace ends a word.
// Each word has its contraction expanded ("don't" becomes "do" and "not"),
// ASCII punctuation other than the apostrophe removed, and dangling
// apostrophes dropped. Tokens are returned in input order and may be empty
// (runs of whitespace produce empty words); callers filter those out.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "’", "'")

	runes := []rune(text)
	tokens := make([]string, 0, len(runes)/4+1)

	var word strings.Builder
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			word.WriteRune(r)
			// The last rune also ends a word.
			if i < len(runes)-1 {
				continue
			}
		}

		tokens = append(tokens, splitWord(word.String())...)
		word.Reset()
	}

	return tokens
}

// splitWord turns one whitespace-delimited word into its normalized tokens.
func splitWord(word string) []string {
	candidates := []string{word}
	if expanded, ok := expandContraction(stripPunctuation(word)); ok && strings.Contains(expanded, " ") {
		candidates = strings.Split(expanded, " ")
	}

	for i, c := range candidates {
		c = stripPunctuation(c)
		c = stripDanglingApostrophes(c)
		c = strings.Join(strings.Fields(c), "")
		candidates[i] = c
	}
	return candidates
}

// stripPunctuation removes every ASCII punctuation character except '.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && r != '\'' && unicode.IsPunct(r) || isASCIISymbol(r) {
			return -1
		}
		return r
	}, s)
}

// isASCIISymbol reports the ASCII punctuation characters that unicode
// classifies as symbols rather than punctuation ($ + < = > ^ ` | ~).
func isASCIISymbol(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsSymbol(r)
}

// stripDanglingApostrophes drops apostrophes that are not followed by a word
// character. "dogs'" becomes "dogs"; "o'clock" is left alone.
func stripDanglingApostrophes(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return s
	}

	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i, r := range runes {
		if r == '\'' && (i == len(runes)-1 || !isWordRune(runes[i+1])) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}
