package relational

import (
	"fmt"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

// Renderer turns a statement AST into dialect SQL.
type Renderer interface {
	Render(ast *types.AST) (*types.QueryResult, error)
}

// Compiled is a rendered statement ready for sqlx named execution.
type Compiled struct {
	SQL    string
	Params []string
	Args   map[string]any
}

// Statement is an immutable SELECT under construction. Every method returns
// a new Statement and leaves the receiver untouched.
type Statement struct {
	target   types.Table
	fields   []types.SelectField
	joins    []types.Join
	where    []types.ConditionItem
	groupBy  []types.Field
	having   []types.ConditionItem
	ordering []types.OrderBy
	args     map[string]any
}

// NewStatement starts a statement selecting from target.
func NewStatement(target types.Table) *Statement {
	return &Statement{target: target}
}

func (s *Statement) clone() *Statement {
	c := &Statement{
		target:   s.target,
		fields:   append([]types.SelectField(nil), s.fields...),
		joins:    append([]types.Join(nil), s.joins...),
		where:    append([]types.ConditionItem(nil), s.where...),
		groupBy:  append([]types.Field(nil), s.groupBy...),
		having:   append([]types.ConditionItem(nil), s.having...),
		ordering: append([]types.OrderBy(nil), s.ordering...),
		args:     make(map[string]any, len(s.args)),
	}
	for k, v := range s.args {
		c.args[k] = v
	}
	return c
}

// Select adds projected columns.
func (s *Statement) Select(fields ...types.SelectField) *Statement {
	c := s.clone()
	c.fields = append(c.fields, fields...)
	return c
}

// Join adds a join.
func (s *Statement) Join(join types.Join) *Statement {
	c := s.clone()
	c.joins = append(c.joins, join)
	return c
}

// Where adds a predicate, ANDed with the existing ones.
func (s *Statement) Where(cond types.ConditionItem) *Statement {
	if cond == nil {
		return s
	}
	c := s.clone()
	c.where = append(c.where, cond)
	return c
}

// Having adds an aggregate predicate, ANDed with the existing ones.
func (s *Statement) Having(cond types.ConditionItem) *Statement {
	c := s.clone()
	c.having = append(c.having, cond)
	return c
}

// GroupBy adds grouping columns, skipping ones already present.
func (s *Statement) GroupBy(fields ...types.Field) *Statement {
	c := s.clone()
	for _, f := range fields {
		if !containsField(c.groupBy, f) {
			c.groupBy = append(c.groupBy, f)
		}
	}
	return c
}

// OrderBy adds an ordering.
func (s *Statement) OrderBy(field types.Field, dir types.Direction) *Statement {
	c := s.clone()
	c.ordering = append(c.ordering, types.OrderBy{Field: field, Direction: dir})
	return c
}

// Bind sets the value of a parameter.
func (s *Statement) Bind(p types.Param, value any) *Statement {
	c := s.clone()
	c.args[p.Name] = value
	return c
}

// Merge returns s extended with the joins, predicates, grouping and
// bindings of other. other's target and projection are ignored.
func (s *Statement) Merge(other *Statement) *Statement {
	c := s.clone()
	c.joins = append(c.joins, other.joins...)
	c.where = append(c.where, other.where...)
	c.having = append(c.having, other.having...)
	for _, f := range other.groupBy {
		if !containsField(c.groupBy, f) {
			c.groupBy = append(c.groupBy, f)
		}
	}
	for k, v := range other.args {
		c.args[k] = v
	}
	return c
}

// split returns s without its WHERE predicates, and those predicates.
func (s *Statement) split() (*Statement, []types.ConditionItem) {
	c := s.clone()
	where := c.where
	c.where = nil
	return c, where
}

// Fields returns the projected columns.
func (s *Statement) Fields() []types.SelectField {
	return append([]types.SelectField(nil), s.fields...)
}

// Joins returns the joins in order.
func (s *Statement) Joins() []types.Join {
	return append([]types.Join(nil), s.joins...)
}

// Conditions returns the WHERE predicates.
func (s *Statement) Conditions() []types.ConditionItem {
	return append([]types.ConditionItem(nil), s.where...)
}

// HavingConditions returns the HAVING predicates.
func (s *Statement) HavingConditions() []types.ConditionItem {
	return append([]types.ConditionItem(nil), s.having...)
}

// GroupByFields returns the grouping columns.
func (s *Statement) GroupByFields() []types.Field {
	return append([]types.Field(nil), s.groupBy...)
}

// Args returns a copy of the parameter bindings.
func (s *Statement) Args() map[string]any {
	args := make(map[string]any, len(s.args))
	for k, v := range s.args {
		args[k] = v
	}
	return args
}

// AST builds the statement AST.
func (s *Statement) AST() *types.AST {
	return &types.AST{
		Target:      s.target,
		Fields:      s.Fields(),
		Joins:       s.Joins(),
		WhereClause: types.And(s.Conditions()...),
		GroupBy:     s.GroupByFields(),
		Having:      s.HavingConditions(),
		Ordering:    append([]types.OrderBy(nil), s.ordering...),
	}
}

// Render renders the statement and checks every placeholder is bound.
func (s *Statement) Render(r Renderer) (*Compiled, error) {
	result, err := r.Render(s.AST())
	if err != nil {
		if render.IsUnsupported(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		return nil, err
	}
	args := make(map[string]any, len(result.RequiredParams))
	for _, name := range result.RequiredParams {
		v, ok := s.args[name]
		if !ok {
			return nil, fmt.Errorf("parameter %q has no bound value", name)
		}
		args[name] = v
	}
	return &Compiled{SQL: result.SQL, Params: result.RequiredParams, Args: args}, nil
}

func containsField(fields []types.Field, f types.Field) bool {
	for _, existing := range fields {
		if existing.Name == f.Name && existing.Table == f.Table {
			return true
		}
	}
	return false
}
