// Package fulltext turns free text into search index keys.
//
// The pipeline is Tokenize → RemoveStopwords → StemTokens → dedupe. The same
// pipeline runs over record content at write time and over the query string
// at search time, so a query token can only match a stored token when both
// went through identical normalization.
package fulltext

// IndexTokens returns the unique, stopword-filtered, stemmed tokens of text.
// The result is a set; its order is first occurrence, which is stable but
// carries no meaning.
func IndexTokens(text string) []string {
	tokens := Tokenize(text)

	nonEmpty := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}

	stemmed := StemTokens(RemoveStopwords(nonEmpty))

	seen := make(map[string]struct{}, len(stemmed))
	out := make([]string, 0, len(stemmed))
	for _, t := range stemmed {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
