package relational

import (
	"fmt"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/internal/types"
)

// Node is a tree node that can fold itself into a statement.
type Node interface {
	searchql.Node
	// Query returns stmt extended with the node's predicates. The node
	// registers the tables it needs with qc instead of joining them.
	Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error)
}

func queryNode(n searchql.Node, stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	rn, ok := n.(Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%T)", ErrNotCompilable, n.Kind(), n)
	}
	return rn.Query(stmt, scope, qc)
}

var sqlOperators = map[searchql.Op]types.Operator{
	searchql.Lt: types.LT,
	searchql.Gt: types.GT,
	searchql.Le: types.LE,
	searchql.Ge: types.GE,
	searchql.Eq: types.EQ,
	searchql.Ne: types.NE,
}

func sqlOperator(op searchql.Op) (types.Operator, error) {
	o, ok := sqlOperators[op]
	if !ok {
		return "", &searchql.InvalidOperatorError{Name: op.String()}
	}
	return o, nil
}

// SQLComparison is "column op :value" on the bound table.
type SQLComparison struct {
	searchql.Comparison
}

// Query implements Node.
func (c *SQLComparison) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	col, ok, err := qc.column(scope, c.Param)
	if !ok {
		return stmt, err
	}
	op, err := sqlOperator(c.Op)
	if err != nil {
		return nil, err
	}
	qc.Require(scope.Table)
	qc.MarkFiltered(scope.Table)
	p := qc.Param(col)
	return stmt.
		Where(types.Condition{Field: types.Of(scope.Table, col), Operator: op, Value: p}).
		Bind(p, c.Value), nil
}

// SQLRangeComparison is "column BETWEEN :from AND :to"; with one bound it
// degrades to a single comparison using the bound policy.
type SQLRangeComparison struct {
	searchql.RangeComparison
}

// Query implements Node.
func (r *SQLRangeComparison) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	col, ok, err := qc.column(scope, r.Param)
	if !ok {
		return stmt, err
	}
	b, err := boundsOf(r)
	if err != nil {
		return nil, err
	}
	qc.Require(scope.Table)
	qc.MarkFiltered(scope.Table)

	field := types.Of(scope.Table, col)
	low := qc.Param(col)
	stmt = stmt.Bind(low, b.value)
	if b.between {
		high := qc.Param(col)
		return stmt.Where(types.BetweenCondition{Field: field, Low: low, High: high}).Bind(high, b.high), nil
	}
	return stmt.Where(types.Condition{Field: field, Operator: b.op, Value: low}), nil
}

// SQLStringPattern is a case-insensitive LIKE on the bound table.
type SQLStringPattern struct {
	searchql.StringPattern
}

// Query implements Node.
func (s *SQLStringPattern) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	col, ok, err := qc.column(scope, s.Param)
	if !ok {
		return stmt, err
	}
	qc.Require(scope.Table)
	qc.MarkFiltered(scope.Table)
	p := qc.Param(col)
	return stmt.
		Where(types.Condition{Field: types.Of(scope.Table, col), Operator: types.ILIKE, Value: p}).
		Bind(p, s.Pattern), nil
}

// SQLConjunction folds its children in order.
type SQLConjunction struct {
	searchql.Conjunction
}

// Query implements Node.
func (c *SQLConjunction) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	var err error
	for _, item := range c.Items {
		if stmt, err = queryNode(item, stmt, scope, qc); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// SQLConjunctionCopies binds each child to a distinct reference of the
// scope's table.
type SQLConjunctionCopies struct {
	searchql.ConjunctionCopies
}

// Query implements Node.
func (c *SQLConjunctionCopies) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	if !scope.Bound() {
		return nil, fmt.Errorf("distinct instances need a table, none bound for %q", scope.SubForm)
	}
	refs := qc.Aliases(scope.Table.Name, len(c.Items))
	var err error
	for i, item := range c.Items {
		child := Scope{SubForm: scope.SubForm, Table: refs[i]}
		if stmt, err = queryNode(item, stmt, child, qc); err != nil {
			return nil, err
		}
	}
	if !qc.Schema().HasColumn(scope.Table.Name, "id") {
		return stmt, nil
	}
	var used []types.Table
	for _, ref := range refs {
		if qc.IsRequired(ref.Ref()) {
			used = append(used, ref)
		}
	}
	for i := 1; i < len(used); i++ {
		for j := 0; j < i; j++ {
			stmt = stmt.Where(types.FieldComparison{
				LeftField:  types.Of(used[i], "id"),
				Operator:   types.NE,
				RightField: types.Of(used[j], "id"),
			})
		}
	}
	return stmt, nil
}

// SQLDisjunction ORs the predicates each child contributes. Tables first
// needed by a branch are left joined so rows matching another branch stay.
type SQLDisjunction struct {
	searchql.Disjunction
}

// Query implements Node.
func (d *SQLDisjunction) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	mark := len(qc.pending)
	defer qc.relaxSince(mark)

	rest, outer := stmt.split()
	var branches []types.ConditionItem
	for _, item := range d.Items {
		branch, err := queryNode(item, rest, scope, qc)
		if err != nil {
			return nil, err
		}
		var where []types.ConditionItem
		rest, where = branch.split()
		if cond := types.And(where...); cond != nil {
			branches = append(branches, cond)
		}
	}
	for _, cond := range outer {
		rest = rest.Where(cond)
	}
	return rest.Where(types.Or(branches...)), nil
}

// SQLSubForm binds its content to the sub-form's table.
type SQLSubForm struct {
	searchql.SubForm
}

// Query implements Node.
func (s *SQLSubForm) Query(stmt *Statement, _ Scope, qc *Context) (*Statement, error) {
	table, ok := qc.Schema().TableFor(s.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubForm, s.Name)
	}
	if s.Content == nil {
		return stmt, nil
	}
	return queryNode(s.Content, stmt, Scope{SubForm: s.Name, Table: types.Table{Name: table}}, qc)
}

// bound is a comparison or range reduced to what a predicate needs.
type bound struct {
	op      types.Operator
	value   any
	high    any
	between bool
}

// boundsOf extracts a bound from a comparison or range node.
func boundsOf(n searchql.Node) (bound, error) {
	var (
		cmp *searchql.Comparison
		rng *searchql.RangeComparison
	)
	switch v := n.(type) {
	case *SQLComparison:
		cmp = &v.Comparison
	case *searchql.Comparison:
		cmp = v
	case *SQLRangeComparison:
		rng = &v.RangeComparison
	case *searchql.RangeComparison:
		rng = v
	default:
		return bound{}, fmt.Errorf("expected a comparison or range, got %s", n.Kind())
	}

	if cmp != nil {
		op, err := sqlOperator(cmp.Op)
		if err != nil {
			return bound{}, err
		}
		return bound{op: op, value: cmp.Value}, nil
	}

	hasFrom, hasTo := !searchql.IsEmpty(rng.From), !searchql.IsEmpty(rng.To)
	switch {
	case hasFrom && hasTo:
		return bound{value: rng.From, high: rng.To, between: true}, nil
	case hasFrom:
		op, _ := sqlOperator(searchql.LowerBoundOp)
		return bound{op: op, value: rng.From}, nil
	case hasTo:
		op, _ := sqlOperator(searchql.UpperBoundOp)
		return bound{op: op, value: rng.To}, nil
	}
	return bound{}, fmt.Errorf("range on %q has no bounds", rng.Param)
}

// paramOf extracts the parameter name of a comparison or range node.
func paramOf(n searchql.Node) string {
	if fields := n.FieldsQueried(); len(fields) > 0 {
		return fields[0]
	}
	return n.Kind()
}
