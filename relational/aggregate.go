package relational

import (
	"fmt"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/internal/types"
)

// Aggregate node kinds.
const (
	KindChangeCount  = "ChangeCount"
	KindDuration     = "Duration"
	KindElementCount = "ElementCount"
)

// CharRange is a closed range of leading characters.
type CharRange struct {
	Low  string
	High string
}

// Letter ranges the element counts are defined over.
var (
	LowercaseLetters = []CharRange{{"a", "z"}, {"а", "я"}, {"ё", "ё"}}
	UppercaseLetters = []CharRange{{"A", "Z"}, {"А", "Я"}, {"Ё", "Ё"}}
)

// wrapper holds the comparison or range an aggregate node filters with.
type wrapper struct {
	Inner searchql.Node
}

func (w wrapper) FieldsQueried() []string { return w.Inner.FieldsQueried() }
func (w wrapper) Key() []any              { return []any{w.Inner} }

func (w wrapper) writeTree(tw *searchql.TreeWriter, depth int, label string) {
	tw.Line(depth, label)
	w.Inner.WriteTree(tw, depth+1)
}

// ChangeCount filters on the number of changes of a construction.
type ChangeCount struct {
	wrapper
}

// NewChangeCount wraps a comparison or range over the change count.
func NewChangeCount(inner searchql.Node) (searchql.Node, error) {
	if _, err := boundsOf(inner); err != nil {
		return nil, err
	}
	return &ChangeCount{wrapper{inner}}, nil
}

func (c *ChangeCount) Kind() string                  { return KindChangeCount }
func (c *ChangeCount) Equal(other searchql.Node) bool { return searchql.Equal(c, other) }

func (c *ChangeCount) WriteTree(w *searchql.TreeWriter, depth int) {
	c.writeTree(w, depth, "COUNT(changes)")
}

// Query implements Node. The count is taken over a LEFT JOIN so that
// constructions without changes count as zero. It runs after the walk so
// that it knows whether the change table is filtered elsewhere.
func (c *ChangeCount) Query(stmt *Statement, _ Scope, qc *Context) (*Statement, error) {
	b, err := boundsOf(c.Inner)
	if err != nil {
		return nil, err
	}
	qc.Defer(func(s *Statement) (*Statement, error) {
		t := types.Table{Name: TableChange}
		if qc.InUse(TableChange) {
			t = qc.Fresh(TableChange)
		}
		qc.RequireOptional(t)

		id := types.Of(t, "id")
		cond, s := aggregateBound(qc, s, b, "num_changes")
		cond.Func = types.AggCountDistinct
		cond.Field = &id
		return s.Having(cond), nil
	})
	return stmt, nil
}

func aggregateBound(qc *Context, s *Statement, b bound, hint string) (types.AggregateCondition, *Statement) {
	p := qc.Param(hint)
	cond := types.AggregateCondition{Operator: b.op, Value: p}
	s = s.Bind(p, b.value)
	if b.between {
		high := qc.Param(hint)
		cond.High = &high
		s = s.Bind(high, b.high)
	}
	return cond, s
}

// Duration filters on last_attested - first_attested of the current change.
type Duration struct {
	wrapper
}

// NewDuration wraps a comparison or range over the duration.
func NewDuration(inner searchql.Node) (searchql.Node, error) {
	if _, err := boundsOf(inner); err != nil {
		return nil, err
	}
	return &Duration{wrapper{inner}}, nil
}

func (d *Duration) Kind() string                  { return KindDuration }
func (d *Duration) Equal(other searchql.Node) bool { return searchql.Equal(d, other) }

func (d *Duration) WriteTree(w *searchql.TreeWriter, depth int) {
	d.writeTree(w, depth, "last_attested - first_attested")
}

// Query implements Node.
func (d *Duration) Query(stmt *Statement, scope Scope, qc *Context) (*Statement, error) {
	last, ok, err := qc.column(scope, "last_attested")
	if !ok {
		return stmt, err
	}
	first, ok, err := qc.column(scope, "first_attested")
	if !ok {
		return stmt, err
	}
	b, err := boundsOf(d.Inner)
	if err != nil {
		return nil, err
	}
	qc.Require(scope.Table)
	qc.MarkFiltered(scope.Table)

	p := qc.Param("duration")
	cond := types.DifferenceCondition{
		Minuend:    types.Of(scope.Table, last),
		Subtrahend: types.Of(scope.Table, first),
		Operator:   b.op,
		Value:      p,
	}
	stmt = stmt.Bind(p, b.value)
	if b.between {
		high := qc.Param("duration")
		cond.High = &high
		stmt = stmt.Bind(high, b.high)
	}
	return stmt.Where(cond), nil
}

// ElementCount filters on the number of formula elements whose first
// character falls in Ranges. The count is computed by a grouped subquery
// joined as Name and projected under the same name.
type ElementCount struct {
	wrapper
	Name   string
	Ranges []CharRange
}

// NewElementCount wraps a comparison or range over an element count named
// after the inner node's parameter.
func NewElementCount(inner searchql.Node, ranges []CharRange) (searchql.Node, error) {
	if _, err := boundsOf(inner); err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("element count %q needs at least one character range", paramOf(inner))
	}
	name := paramOf(inner)
	if !isValidSQLIdentifier(name) {
		return nil, fmt.Errorf("invalid element count name: %s", name)
	}
	return &ElementCount{wrapper: wrapper{inner}, Name: name, Ranges: ranges}, nil
}

func (e *ElementCount) Kind() string                  { return KindElementCount }
func (e *ElementCount) Key() []any                    { return []any{e.Inner, e.Ranges} }
func (e *ElementCount) Equal(other searchql.Node) bool { return searchql.Equal(e, other) }

func (e *ElementCount) WriteTree(w *searchql.TreeWriter, depth int) {
	label := "COUNT(elements starting with"
	for _, r := range e.Ranges {
		label += fmt.Sprintf(" %s-%s", r.Low, r.High)
	}
	e.writeTree(w, depth, label+")")
}

// Query implements Node.
func (e *ElementCount) Query(stmt *Statement, _ Scope, qc *Context) (*Statement, error) {
	b, err := boundsOf(e.Inner)
	if err != nil {
		return nil, err
	}

	elements := types.Table{Name: TableFormulaElement}
	fk := qc.Schema().ForeignKey()
	ranges := make([]types.ConditionItem, 0, len(e.Ranges))
	for _, r := range e.Ranges {
		low, high := qc.Param(e.Name+"_low"), qc.Param(e.Name+"_high")
		ranges = append(ranges, types.LeadingCharCondition{Field: types.Of(elements, "value"), Low: low, High: high})
		stmt = stmt.Bind(low, r.Low).Bind(high, r.High)
	}
	sub := &types.AST{
		Target: elements,
		Fields: []types.SelectField{
			{Field: types.Of(elements, fk), Alias: fk},
			{Aggregate: types.AggCount, Alias: "cnt"},
		},
		WhereClause: types.Or(ranges...),
		GroupBy:     []types.Field{types.Of(elements, fk)},
	}

	count := types.Field{Name: "cnt", Table: e.Name, NullAsZero: true}
	qc.RequireDerived(e.Name, sub, &types.SelectField{Field: count, Alias: e.Name})

	p := qc.Param(e.Name)
	stmt = stmt.Bind(p, b.value)
	if b.between {
		high := qc.Param(e.Name)
		return stmt.Where(types.BetweenCondition{Field: count, Low: p, High: high}).Bind(high, b.high), nil
	}
	return stmt.Where(types.Condition{Field: count, Operator: b.op, Value: p}), nil
}
