package relational

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/internal/types"
)

// Scope is the sub-form a node is compiled under and the (possibly
// aliased) table it is bound to. The zero Scope is the top level.
type Scope struct {
	SubForm string
	Table   types.Table
}

// Bound reports whether the scope has a table.
func (s Scope) Bound() bool {
	return s.Table.Name != ""
}

// SkippedPredicate records a field the compiler dropped.
type SkippedPredicate struct {
	SubForm string
	Table   string
	Field   string
	Reason  string
}

// entityJoin is a table, alias or derived table waiting to be joined.
type entityJoin struct {
	table    types.Table
	joinType types.JoinType
	subquery *types.AST
	project  *types.SelectField
}

// Context is the join and alias bookkeeping of one query. It is created
// with the Query and must not be shared between queries.
type Context struct {
	schema      *Schema
	log         logrus.FieldLogger
	strict      bool
	derivations map[string][]searchql.Derivation

	pending  []entityJoin
	index    map[string]int
	joined   map[string]bool
	aliasSeq map[string]int
	claimed  map[string]bool
	filtered map[string]bool
	paramSeq map[string]int
	deferred []func(*Statement) (*Statement, error)
	skipped  []SkippedPredicate
}

func newContext(schema *Schema, log logrus.FieldLogger, strict bool) *Context {
	c := &Context{
		schema:      schema,
		log:         log,
		strict:      strict,
		derivations: make(map[string][]searchql.Derivation),
		index:       make(map[string]int),
		joined:      make(map[string]bool),
		aliasSeq:    make(map[string]int),
		claimed:     make(map[string]bool),
		filtered:    make(map[string]bool),
		paramSeq:    make(map[string]int),
	}
	c.joined[schema.Root().Ref()] = true
	c.joined[schema.Info().Ref()] = true
	return c
}

// Schema returns the schema the context resolves fields against.
func (c *Context) Schema() *Schema {
	return c.schema
}

// Derivations returns the derivations registered for a sub-form.
func (c *Context) Derivations(formName string) []searchql.Derivation {
	return c.derivations[formName]
}

// Require registers t for an inner join from the root. A table already
// pending as a left join is upgraded.
func (c *Context) Require(t types.Table) {
	c.require(entityJoin{table: t, joinType: types.InnerJoin})
}

// RequireOptional registers t for a left join from the root.
func (c *Context) RequireOptional(t types.Table) {
	c.require(entityJoin{table: t, joinType: types.LeftJoin})
}

// RequireDerived registers a derived table joined on its foreign key
// column. project, when set, is added to the projection.
func (c *Context) RequireDerived(alias string, sub *types.AST, project *types.SelectField) {
	c.require(entityJoin{
		table:    types.Table{Name: alias, Alias: alias},
		joinType: types.LeftJoin,
		subquery: sub,
		project:  project,
	})
}

func (c *Context) require(j entityJoin) {
	ref := j.table.Ref()
	if c.joined[ref] {
		return
	}
	if i, ok := c.index[ref]; ok {
		if j.joinType == types.InnerJoin {
			c.pending[i].joinType = types.InnerJoin
		}
		return
	}
	c.index[ref] = len(c.pending)
	c.pending = append(c.pending, j)
	c.log.WithFields(logrus.Fields{"table": j.table.Name, "ref": ref, "join": j.joinType}).Debug("join registered")
}

// relaxSince turns the inner joins registered after mark into left joins.
// A later Require upgrades them again.
func (c *Context) relaxSince(mark int) {
	for i := mark; i < len(c.pending); i++ {
		if c.pending[i].joinType == types.InnerJoin {
			c.pending[i].joinType = types.LeftJoin
		}
	}
}

// IsRequired reports whether a table reference is joined or pending.
func (c *Context) IsRequired(ref string) bool {
	if c.joined[ref] {
		return true
	}
	_, ok := c.index[ref]
	return ok
}

// Pending returns the table references still to be joined, in order.
func (c *Context) Pending() []types.Table {
	tables := make([]types.Table, 0, len(c.pending))
	for _, j := range c.pending {
		tables = append(tables, j.table)
	}
	return tables
}

// Fresh returns a new alias of table.
func (c *Context) Fresh(table string) types.Table {
	c.aliasSeq[table]++
	return types.Table{Name: table, Alias: fmt.Sprintf("%s_%d", table, c.aliasSeq[table])}
}

// Aliases returns n references to table for n distinct rows. The unaliased
// table is used first when no other predicate has claimed it.
func (c *Context) Aliases(table string, n int) []types.Table {
	if n <= 0 {
		return nil
	}
	refs := make([]types.Table, 0, n)
	if !c.claimed[table] && !c.filtered[table] {
		c.claimed[table] = true
		refs = append(refs, types.Table{Name: table})
	}
	for len(refs) < n {
		refs = append(refs, c.Fresh(table))
	}
	return refs
}

// MarkFiltered records that predicates constrain t.
func (c *Context) MarkFiltered(t types.Table) {
	if !t.Aliased() {
		c.filtered[t.Name] = true
	}
}

// InUse reports whether the unaliased table carries predicates or was
// handed out by Aliases.
func (c *Context) InUse(table string) bool {
	return c.filtered[table] || c.claimed[table]
}

// Param returns a parameter name unique within the query.
func (c *Context) Param(hint string) types.Param {
	hint = strings.ToLower(hint)
	c.paramSeq[hint]++
	return types.Param{Name: fmt.Sprintf("%s_%d", hint, c.paramSeq[hint])}
}

// Defer schedules fn to run after the tree walk, before the base statement
// is assembled.
func (c *Context) Defer(fn func(*Statement) (*Statement, error)) {
	c.deferred = append(c.deferred, fn)
}

// column resolves field under scope, recording a skip when the bound table
// has no such column.
func (c *Context) column(scope Scope, field string) (string, bool, error) {
	if !scope.Bound() {
		return "", false, c.skip(scope, field, "no table bound at this level")
	}
	col, ok := c.schema.Column(scope.Table.Name, field)
	if !ok {
		return "", false, c.skip(scope, field, "field not applicable to this sub-form")
	}
	return col, true, nil
}

func (c *Context) skip(scope Scope, field, reason string) error {
	c.skipped = append(c.skipped, SkippedPredicate{
		SubForm: scope.SubForm,
		Table:   scope.Table.Name,
		Field:   field,
		Reason:  reason,
	})
	if c.strict {
		return fmt.Errorf("%w: %q in sub-form %q: %s", ErrUnknownField, field, scope.SubForm, reason)
	}
	c.log.WithFields(logrus.Fields{
		"subform": scope.SubForm,
		"field":   field,
		"reason":  reason,
	}).Warn("predicate skipped")
	return nil
}

// Skipped lists the predicates dropped so far.
func (c *Context) Skipped() []SkippedPredicate {
	return append([]SkippedPredicate(nil), c.skipped...)
}

// joinOn is "t.fk = root.key".
func (c *Context) joinOn(t types.Table) types.ConditionItem {
	return types.FieldComparison{
		LeftField:  types.Of(t, c.schema.ForeignKey()),
		Operator:   types.EQ,
		RightField: types.Of(c.schema.Root(), c.schema.RootKey()),
	}
}

// flush moves every pending table onto base and marks it joined.
func (c *Context) flush(base *Statement) *Statement {
	for _, j := range c.pending {
		join := types.Join{Type: j.joinType, Table: j.table, Subquery: j.subquery, On: c.joinOn(j.table)}
		base = base.Join(join)
		if j.project != nil {
			base = base.Select(*j.project)
		}
		c.joined[j.table.Ref()] = true
	}
	c.pending = nil
	c.index = make(map[string]int)
	return base
}
