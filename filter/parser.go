package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nickyhof/CommitView/core"
)

var (
	ErrUnknownColumn   = errors.New("unknown filter column")
	ErrUnknownOperator = errors.New("unknown filter operator")
	ErrMissingValue    = errors.New("missing filter value")
	ErrSyntax          = errors.New("filter syntax error")
)

type Parser struct {
	lexer   *Lexer
	columns map[string]bool
}

// NewParser returns a parser that accepts only the given column names.
func NewParser(text string, columns []string) *Parser {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	return &Parser{lexer: NewLexer(strings.TrimSpace(text)), columns: known}
}

// Parse returns the clauses of a filter expression. Any invalid clause
// rejects the whole expression and the result is empty. Blank text yields no
// clauses and no error.
func Parse(text string, columns []string) ([]core.FilterClause, error) {
	return NewParser(text, columns).Parse()
}

func (parser *Parser) Parse() ([]core.FilterClause, error) {
	clauses := []core.FilterClause{}
	if parser.lexer.PeekToken().Type == EOF {
		return clauses, nil
	}

	for {
		clause, err := parser.parseClause()
		if err != nil {
			return []core.FilterClause{}, err
		}
		clauses = append(clauses, clause)

		token := parser.lexer.NextToken()
		switch token.Type {
		case EOF:
			return clauses, nil
		case And:
			continue
		default:
			return []core.FilterClause{}, fmt.Errorf("%w: unexpected %s", ErrSyntax, token)
		}
	}
}

func (parser *Parser) parseClause() (core.FilterClause, error) {
	token := parser.lexer.NextToken()
	if token.Type != Column {
		return core.FilterClause{}, fmt.Errorf("%w: expected `column`, got %s", ErrSyntax, token)
	}
	if !parser.columns[token.Value] {
		return core.FilterClause{}, fmt.Errorf("%w: %s", ErrUnknownColumn, token.Value)
	}
	clause := core.FilterClause{Column: token.Value}

	token = parser.lexer.NextToken()
	switch token.Type {
	case Operator, Word:
		if !core.IsFilterOperator(token.Value) {
			return core.FilterClause{}, fmt.Errorf("%w: %q", ErrUnknownOperator, token.Value)
		}
		clause.Operator = token.Value
	default:
		return core.FilterClause{}, fmt.Errorf("%w: missing operator after `%s`", ErrUnknownOperator, clause.Column)
	}

	value := parser.lexer.ReadValue()
	if value == "" {
		return core.FilterClause{}, fmt.Errorf("%w: `%s` %s", ErrMissingValue, clause.Column, clause.Operator)
	}
	clause.Value = parseValue(value)
	return clause, nil
}

func parseValue(text string) core.FilterValue {
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return core.NumberValue(f)
	}
	return core.StringValue(text)
}

// FormatClause renders one clause in the filter grammar.
func FormatClause(c core.FilterClause) string {
	return fmt.Sprintf("`%s` %s %s", c.Column, c.Operator, c.Value)
}

// Format renders clauses joined by " & ". The text is for display: string
// values containing "&", surrounding spaces or a number do not parse back
// to the same clauses.
func Format(clauses []core.FilterClause) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = FormatClause(c)
	}
	return strings.Join(parts, " & ")
}
