package relational

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/internal/types"
)

// TokensQuery matches a space separated pattern word by word against the
// ordered elements of a formula. Consecutive tokens must match adjacent
// elements of the same construction.
type TokensQuery struct {
	searchql.StringPattern
	// Table holds the elements; Column their text and OrderColumn their
	// position.
	Table       string
	Column      string
	OrderColumn string
}

// NewTokensQuery builds a TokensQuery over formula_element.
func NewTokensQuery(param, pattern string) *TokensQuery {
	return &TokensQuery{
		StringPattern: searchql.StringPattern{Param: param, Pattern: pattern},
		Table:         TableFormulaElement,
		Column:        "value",
		OrderColumn:   "order",
	}
}

// Tokens returns the SQL LIKE patterns of the individual words.
func (t *TokensQuery) Tokens() []string {
	fields := strings.Fields(norm.NFC.String(t.Pattern))
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = WildcardToLike(f)
	}
	return tokens
}

// WriteTree implements searchql.Node.
func (t *TokensQuery) WriteTree(w *searchql.TreeWriter, depth int) {
	w.Line(depth, fmt.Sprintf("%s ~ tokens %q", t.Param, t.Tokens()))
}

// Query implements Node.
func (t *TokensQuery) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	tokens := t.Tokens()
	if len(tokens) == 0 {
		return stmt, nil
	}
	fk := qc.Schema().ForeignKey()
	refs := qc.Aliases(t.Table, len(tokens))
	for i, token := range tokens {
		ref := refs[i]
		qc.Require(ref)
		qc.MarkFiltered(ref)

		p := qc.Param(t.Column)
		stmt = stmt.
			Where(types.Condition{Field: types.Of(ref, t.Column), Operator: types.ILIKE, Value: p}).
			Bind(p, token)
		if i == 0 {
			continue
		}

		prev := refs[i-1]
		step := qc.Param("step")
		stmt = stmt.
			Where(types.FieldComparison{
				LeftField:  types.Of(ref, fk),
				Operator:   types.EQ,
				RightField: types.Of(prev, fk),
			}).
			Where(types.FieldComparison{
				LeftField:  types.Of(ref, t.OrderColumn),
				Operator:   types.EQ,
				RightField: types.Of(prev, t.OrderColumn),
				Offset:     &step,
			}).
			Bind(step, 1)
	}
	return stmt, nil
}

// WildcardToLike converts the form wildcard "*" to the SQL "%".
func WildcardToLike(s string) string {
	return strings.ReplaceAll(s, "*", "%")
}
