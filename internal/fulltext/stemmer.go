package fulltext

import (
	"regexp"
	"unicode/utf8"
)

// Porter stemmer, following M.F. Porter, "An algorithm for suffix
// stripping", Program 14(3), 1980, and its reference implementation.
// Stems are used as index keys, so any change to these rules changes which
// stored records a query can reach.

const (
	consonant    = "[^aeiou]"
	vowel        = "[aeiouy]"
	consonantSeq = consonant + "[^aeiouy]*"
	vowelSeq     = vowel + "[aeiou]*"
)

var (
	// [C]VC... is m>0
	measureGt0 = regexp.MustCompile("^(" + consonantSeq + ")?" + vowelSeq + consonantSeq)
	// [C]VC[V] is m=1
	measureEq1 = regexp.MustCompile("^(" + consonantSeq + ")?" + vowelSeq + consonantSeq + "(" + vowelSeq + ")?$")
	// [C]VCVC... is m>1
	measureGt1 = regexp.MustCompile("^(" + consonantSeq + ")?" + vowelSeq + consonantSeq + vowelSeq + consonantSeq)
	// vowel in stem
	hasVowel = regexp.MustCompile("^(" + consonantSeq + ")?" + vowel)
	// *o: stem ends cvc, where the second c is not w, x or y
	endsCVC = regexp.MustCompile("^" + consonantSeq + vowel + "[^aeiouwxy]$")

	step1aSSES  = regexp.MustCompile(`^(.+?)(ss|i)es$`)
	step1aS     = regexp.MustCompile(`^(.+?)([^s])s$`)
	step1bEED   = regexp.MustCompile(`^(.+?)eed$`)
	step1bEDING = regexp.MustCompile(`^(.+?)(ed|ing)$`)
	step1bATBL  = regexp.MustCompile(`(at|bl|iz)$`)
	step1cY     = regexp.MustCompile(`^(.+?)y$`)
	step2Suffix = regexp.MustCompile(`^(.+?)(ational|tional|enci|anci|izer|bli|alli|entli|eli|ousli|ization|ation|ator|alism|iveness|fulness|ousness|aliti|iviti|biliti|logi)$`)
	step3Suffix = regexp.MustCompile(`^(.+?)(icate|ative|alize|iciti|ical|ful|ness)$`)
	step4Suffix = regexp.MustCompile(`^(.+?)(al|ance|ence|er|ic|able|ible|ant|ement|ment|ent|ou|ism|ate|iti|ous|ive|ize)$`)
	step4ION    = regexp.MustCompile(`^(.+?)(s|t)(ion)$`)
	step5E      = regexp.MustCompile(`^(.+?)e$`)
)

var step2Replacements = map[string]string{
	"ational": "ate",
	"tional":  "tion",
	"enci":    "ence",
	"anci":    "ance",
	"izer":    "ize",
	"bli":     "ble",
	"alli":    "al",
	"entli":   "ent",
	"eli":     "e",
	"ousli":   "ous",
	"ization": "ize",
	"ation":   "ate",
	"ator":    "ate",
	"alism":   "al",
	"iveness": "ive",
	"fulness": "ful",
	"ousness": "ous",
	"aliti":   "al",
	"iviti":   "ive",
	"biliti":  "ble",
	"logi":    "log",
}

var step3Replacements = map[string]string{
	"icate": "ic",
	"ative": "",
	"alize": "al",
	"iciti": "ic",
	"ical":  "ic",
	"ful":   "",
	"ness":  "",
}

// Stem reduces a lower-case token to its Porter stem. Tokens shorter than
// three characters are returned unchanged.
func Stem(token string) string {
	if utf8.RuneCountInString(token) < 3 {
		return token
	}

	// A leading y is a consonant; upper-casing it keeps it out of the vowel
	// classes for the rest of the run.
	leadingY := token[0] == 'y'
	if leadingY {
		token = "Y" + token[1:]
	}

	// Step 1a
	if m := step1aSSES.FindStringSubmatch(token); m != nil {
		token = m[1] + m[2]
	} else if m := step1aS.FindStringSubmatch(token); m != nil {
		token = m[1] + m[2]
	}

	// Step 1b
	if m := step1bEED.FindStringSubmatch(token); m != nil {
		if measureGt0.MatchString(m[1]) {
			token = token[:len(token)-1]
		}
	} else if m := step1bEDING.FindStringSubmatch(token); m != nil {
		stem := m[1]
		if hasVowel.MatchString(stem) {
			token = stem
			switch {
			case step1bATBL.MatchString(token):
				token += "e"
			case endsDoubleConsonant(token):
				_, size := utf8.DecodeLastRuneInString(token)
				token = token[:len(token)-size]
			case endsCVC.MatchString(token):
				token += "e"
			}
		}
	}

	// Step 1c
	if m := step1cY.FindStringSubmatch(token); m != nil {
		if stem := m[1]; hasVowel.MatchString(stem) {
			token = stem + "i"
		}
	}

	// Step 2
	if m := step2Suffix.FindStringSubmatch(token); m != nil {
		if stem := m[1]; measureGt0.MatchString(stem) {
			token = stem + step2Replacements[m[2]]
		}
	}

	// Step 3
	if m := step3Suffix.FindStringSubmatch(token); m != nil {
		if stem := m[1]; measureGt0.MatchString(stem) {
			token = stem + step3Replacements[m[2]]
		}
	}

	// Step 4
	if m := step4Suffix.FindStringSubmatch(token); m != nil {
		if stem := m[1]; measureGt1.MatchString(stem) {
			token = stem
		}
	} else if m := step4ION.FindStringSubmatch(token); m != nil {
		if stem := m[1] + m[2]; measureGt1.MatchString(stem) {
			token = stem
		}
	}

	// Step 5
	if m := step5E.FindStringSubmatch(token); m != nil {
		stem := m[1]
		if measureGt1.MatchString(stem) || (measureEq1.MatchString(stem) && !endsCVC.MatchString(stem)) {
			token = stem
		}
	}
	if len(token) >= 2 && token[len(token)-2:] == "ll" && measureGt1.MatchString(token) {
		token = token[:len(token)-1]
	}

	if leadingY {
		token = "y" + token[1:]
	}
	return token
}

// endsDoubleConsonant reports whether s ends in the same character twice,
// where that character is not a vowel, y, l, s or z.
func endsDoubleConsonant(s string) bool {
	last, size := utf8.DecodeLastRuneInString(s)
	if size == 0 {
		return false
	}
	prev, prevSize := utf8.DecodeLastRuneInString(s[:len(s)-size])
	if prevSize == 0 || prev != last {
		return false
	}
	switch last {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'l', 's', 'z':
		return false
	}
	return true
}

// StemTokens stems every token, preserving order.
func StemTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = Stem(t)
	}
	return out
}
