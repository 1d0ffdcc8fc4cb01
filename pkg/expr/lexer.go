package expr

// Tokenize splits text into tokens. It never fails: a character no rule
// accepts is skipped. Whitespace runs are kept as tokens and a whitespace
// end marker is always appended.
func Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	for pos < len(text) {
		rest := text[pos:]
		matched := false
		for _, r := range rules {
			loc := r.pattern.FindStringIndex(rest)
			if loc == nil {
				continue
			}
			tokens = append(tokens, Token{Kind: r.kind, Literal: rest[:loc[1]]})
			pos += loc[1]
			matched = true
			break
		}
		if !matched {
			pos++
		}
	}
	return append(tokens, Token{Kind: WHITESPACE, Literal: ""})
}
