package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Kind
	}{
		{"equality", "version==1.2.3", []Kind{STRING, EQUAL, STRING, WHITESPACE}},
		{"two char before one char", "a<=b", []Kind{STRING, SMALLEQ, STRING, WHITESPACE}},
		{"greater", "a>b", []Kind{STRING, LARGE, STRING, WHITESPACE}},
		{"greater equal", "a>=b", []Kind{STRING, LARGEEQ, STRING, WHITESPACE}},
		{"not equal", "a!=b", []Kind{STRING, NEQUAL, STRING, WHITESPACE}},
		{"membership", "name IN a,b", []Kind{STRING, WHITESPACE, IN, WHITESPACE, STRING, WHITESPACE}},
		{"not in", "name NIN a", []Kind{STRING, WHITESPACE, NIN, WHITESPACE, STRING, WHITESPACE}},
		{"wildcard", "version==*", []Kind{STRING, EQUAL, ANY, WHITESPACE}},
		{"days", "latest_update<NOW-30", []Kind{STRING, SMALL, DAYS, WHITESPACE}},
		{"group", "(a==1)", []Kind{LBRACKET, STRING, EQUAL, STRING, RBRACKET, WHITESPACE}},
		{"empty", "", []Kind{WHITESPACE}},
		{"unknown characters skipped", `a=="b"`, []Kind{STRING, EQUAL, STRING, WHITESPACE}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(Tokenize(tt.input)))
		})
	}
}

func TestTokenizeLiterals(t *testing.T) {
	tokens := Tokenize("latest_update>=2020-01-01T00:00:00Z")
	assert.Equal(t, "latest_update", tokens[0].Literal)
	assert.Equal(t, ">=", tokens[1].Literal)
	assert.Equal(t, "2020-01-01T00:00:00Z", tokens[2].Literal)
	assert.Equal(t, "", tokens[3].Literal)
}

func TestTokenizeKeepsCommaLists(t *testing.T) {
	tokens := Tokenize("version IN 1.0.0,1.0.1")
	assert.Equal(t, Token{Kind: STRING, Literal: "1.0.0,1.0.1"}, tokens[4])
}
