package expr

import (
	"fmt"
	"strings"
)

// Clause is a single comparison: field, operator and value.
type Clause struct {
	Field    Token `json:"field"`
	Operator Token `json:"operator"`
	Value    Token `json:"value"`
}

func (c Clause) String() string {
	return c.Field.Literal + c.Operator.Literal + c.Value.Literal
}

// Node is one element of a parsed expression: a Clause or a bare
// logical/group token.
type Node struct {
	Token  Token   `json:"token"`
	Clause *Clause `json:"clause,omitempty"`
}

// IsClause reports whether the node carries a comparison.
func (n Node) IsClause() bool { return n.Clause != nil }

// Parse tokenizes text and folds every comparison operator together with
// its immediate neighbours into a Clause. Logical operators and group
// delimiters pass through as bare nodes; all other tokens are dropped.
func Parse(text string) ([]Node, error) {
	var lexed []Token
	for _, tok := range Tokenize(text) {
		if tok.Kind != WHITESPACE {
			lexed = append(lexed, tok)
		}
	}

	var nodes []Node
	for i, tok := range lexed {
		switch {
		case tok.IsLogical(), tok.Kind == LBRACKET, tok.Kind == RBRACKET:
			nodes = append(nodes, Node{Token: tok})
		case tok.IsComparison():
			if i == 0 || i+1 >= len(lexed) {
				return nil, &ParseError{Input: text, Position: i, Reason: fmt.Sprintf("operator %q needs a field and a value", tok.Literal)}
			}
			field, value := lexed[i-1], lexed[i+1]
			if field.Kind != STRING {
				return nil, &ParseError{Input: text, Position: i - 1, Reason: fmt.Sprintf("%q is not a field name", field.Literal)}
			}
			if !value.IsOperand() {
				return nil, &ParseError{Input: text, Position: i + 1, Reason: fmt.Sprintf("%q is not a value", value.Literal)}
			}
			if tok.Kind == IN || tok.Kind == NIN {
				value = joinList(lexed, i+1)
			}
			nodes = append(nodes, Node{Token: tok, Clause: &Clause{Field: field, Operator: tok, Value: value}})
		}
	}
	return nodes, nil
}

// Validate parses text, checks that every clause names one of fields and
// dry-runs the evaluator so unbalanced groups and dangling AND/OR are
// caught before any data is fetched. An empty field list accepts any
// field name.
func Validate(text string, fields ...string) error {
	nodes, err := Parse(text)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return &ParseError{Input: text, Reason: "no clauses"}
	}
	if len(fields) > 0 {
		if err := checkFields(text, nodes, fields); err != nil {
			return err
		}
	}
	_, err = Evaluate(nodes, ResolverFunc(func(Clause) (Outcome, error) {
		return Outcome{Holds: true}, nil
	}))
	return err
}

func checkFields(text string, nodes []Node, fields []string) error {
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	for i, n := range nodes {
		if n.IsClause() && !allowed[n.Clause.Field.Literal] {
			return &ParseError{Input: text, Position: i, Reason: fmt.Sprintf("unknown field %q", n.Clause.Field.Literal)}
		}
	}
	return nil
}

// joinList rebuilds a membership list that whitespace split into several
// tokens, as in "IN 1.0.0, 1.0.1".
func joinList(lexed []Token, start int) Token {
	value := lexed[start]
	for j := start + 1; j < len(lexed) && strings.HasSuffix(value.Literal, ",") && lexed[j].Kind == STRING; j++ {
		value.Literal += lexed[j].Literal
	}
	return value
}
