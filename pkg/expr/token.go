package expr

import "regexp"

// Kind identifies the lexical class of a token.
type Kind string

const (
	AND        Kind = "AND"
	OR         Kind = "OR"
	LBRACKET   Kind = "LBRACKET"
	RBRACKET   Kind = "RBRACKET"
	EQUAL      Kind = "EQUAL"
	NEQUAL     Kind = "NEQUAL"
	SMALLEQ    Kind = "SMALLEQ"
	SMALL      Kind = "SMALL"
	LARGEEQ    Kind = "LARGEEQ"
	LARGE      Kind = "LARGE"
	IN         Kind = "IN"
	NIN        Kind = "NIN"
	DAYS       Kind = "DAYS"
	WHITESPACE Kind = "WHITESPACE"
	ANY        Kind = "ANY"
	STRING     Kind = "STRING"
)

// Token is a single lexeme. Tokens are immutable once produced.
type Token struct {
	Kind    Kind   `json:"kind"`
	Literal string `json:"literal"`
}

// IsComparison reports whether the token is one of the eight comparison operators.
func (t Token) IsComparison() bool {
	switch t.Kind {
	case EQUAL, NEQUAL, SMALLEQ, SMALL, LARGEEQ, LARGE, IN, NIN:
		return true
	}
	return false
}

// IsLogical reports whether the token combines two sub-results.
func (t Token) IsLogical() bool {
	return t.Kind == AND || t.Kind == OR
}

// IsOperand reports whether the token can appear as a clause value.
func (t Token) IsOperand() bool {
	return t.Kind == STRING || t.Kind == ANY || t.Kind == DAYS
}

type rule struct {
	kind    Kind
	pattern *regexp.Regexp
}

// rules are tried in order at every position and the first anchored match
// wins. Two-character comparisons precede their one-character prefixes.
var rules = []rule{
	{AND, regexp.MustCompile(`^AND`)},
	{OR, regexp.MustCompile(`^OR`)},
	{LBRACKET, regexp.MustCompile(`^\(`)},
	{RBRACKET, regexp.MustCompile(`^\)`)},
	{EQUAL, regexp.MustCompile(`^==`)},
	{NEQUAL, regexp.MustCompile(`^!=`)},
	{SMALLEQ, regexp.MustCompile(`^<=`)},
	{SMALL, regexp.MustCompile(`^<`)},
	{LARGEEQ, regexp.MustCompile(`^>=`)},
	{LARGE, regexp.MustCompile(`^>`)},
	{IN, regexp.MustCompile(`^IN`)},
	{NIN, regexp.MustCompile(`^NIN`)},
	{DAYS, regexp.MustCompile(`^NOW-[0-9]+`)},
	{WHITESPACE, regexp.MustCompile(`^\s+`)},
	{ANY, regexp.MustCompile(`^\*`)},
	{STRING, regexp.MustCompile(`^[_a-zA-Z0-9.\-,:]+`)},
}
