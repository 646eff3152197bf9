package relational

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/internal/types"
)

// Phase is the lifecycle position of a Query.
type Phase int

const (
	PhaseConfiguring Phase = iota
	PhaseParsed
	PhaseCompiled
)

func (p Phase) String() string {
	switch p {
	case PhaseConfiguring:
		return "configuring"
	case PhaseParsed:
		return "parsed"
	case PhaseCompiled:
		return "compiled"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Columns every result row carries and that are never projected twice.
const (
	ColumnID      = "id"
	ColumnName    = "name"
	ColumnFormula = "formula"
)

var implicitColumns = map[string]bool{ColumnID: true, ColumnName: true, ColumnFormula: true}

// Query compiles one search form into one statement. A Query is used for a
// single form; parse the next form with a new Query.
type Query struct {
	schema      *Schema
	log         logrus.FieldLogger
	strict      bool
	dumpTree    bool
	defaults    bool
	derivations map[string][]searchql.Derivation

	phase  Phase
	parser *searchql.Parser
	root   searchql.Node
	qc     *Context
	stmt   *Statement
}

// Option configures a Query.
type Option func(*Query)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(q *Query) { q.log = l }
}

// WithStrictFields makes a field the bound table lacks a compile error
// instead of a skipped predicate.
func WithStrictFields(strict bool) Option {
	return func(q *Query) { q.strict = strict }
}

// WithTreeDump logs the parsed tree at debug level.
func WithTreeDump(enabled bool) Option {
	return func(q *Query) { q.dumpTree = enabled }
}

// WithoutDefaultDerivations drops the derivations of DefaultDerivations.
func WithoutDefaultDerivations() Option {
	return func(q *Query) { q.defaults = false }
}

// WithDerivation registers derivations for a sub-form, after the defaults.
func WithDerivation(formName string, ds ...searchql.Derivation) Option {
	return func(q *Query) {
		q.derivations[formName] = append(q.derivations[formName], ds...)
	}
}

// NewQuery returns a Query in the configuring phase. A nil schema means
// DiachroniconSchema.
func NewQuery(schema *Schema, opts ...Option) *Query {
	if schema == nil {
		schema = DiachroniconSchema()
	}
	q := &Query{
		schema:      schema,
		log:         logrus.StandardLogger(),
		defaults:    true,
		derivations: make(map[string][]searchql.Derivation),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.defaults {
		merged := DefaultDerivations()
		for name, ds := range q.derivations {
			merged[name] = append(merged[name], ds...)
		}
		q.derivations = merged
	}
	q.qc = newContext(schema, q.log, q.strict)
	q.qc.derivations = q.derivations
	return q
}

// AddDerivation registers d for formName. It fails once a form is parsed.
func (q *Query) AddDerivation(formName string, d searchql.Derivation) error {
	if q.phase != PhaseConfiguring {
		return ErrAlreadyParsed
	}
	q.derivations[formName] = append(q.derivations[formName], d)
	return nil
}

// Phase returns the lifecycle phase.
func (q *Query) Phase() Phase {
	return q.phase
}

// Context returns the join bookkeeping of the query.
func (q *Query) Context() *Context {
	return q.qc
}

// Root returns the parsed tree, nil before ParseForm.
func (q *Query) Root() searchql.Node {
	return q.root
}

// Skipped lists predicates dropped during compilation.
func (q *Query) Skipped() []SkippedPredicate {
	return q.qc.Skipped()
}

// ParseForm parses form into the relational tree.
func (q *Query) ParseForm(form *searchql.Form) (searchql.Node, error) {
	if q.phase != PhaseConfiguring {
		return nil, ErrAlreadyParsed
	}

	reg := Registry()
	opts := []searchql.ParserOption{
		searchql.WithHooks(&hooks{base: searchql.BaseHooks{Registry: reg}, schema: q.schema}),
		searchql.WithLogger(q.log),
		searchql.WithTreeDump(q.dumpTree),
	}
	for name, ds := range q.derivations {
		opts = append(opts, searchql.WithDerivations(name, ds...))
	}
	q.parser = searchql.NewParser(reg, opts...)

	root, err := q.parser.ParseForm(form)
	if err != nil {
		return nil, err
	}
	q.root = root
	q.phase = PhaseParsed
	return root, nil
}

// Tree renders the parsed tree.
func (q *Query) Tree() string {
	if q.root == nil {
		return ""
	}
	return searchql.Tree(q.root)
}

// Compile builds the statement. Repeated calls return the same statement.
func (q *Query) Compile() (*Statement, error) {
	switch q.phase {
	case PhaseConfiguring:
		return nil, ErrNotParsed
	case PhaseCompiled:
		return q.stmt, nil
	}

	root := q.schema.Root()
	body, err := queryNode(q.root, NewStatement(root), Scope{}, q.qc)
	if err != nil {
		return nil, err
	}
	for _, fn := range q.qc.deferred {
		if body, err = fn(body); err != nil {
			return nil, err
		}
	}
	q.qc.deferred = nil

	stmt := q.base().Merge(body)
	if len(stmt.HavingConditions()) > 0 {
		group := []types.Field{types.Of(root, q.schema.RootKey())}
		for _, f := range stmt.Fields() {
			if f.Aggregate == "" {
				raw := f.Field
				raw.NullAsZero = false
				group = append(group, raw)
			}
		}
		stmt = stmt.GroupBy(group...)
	}
	stmt = stmt.OrderBy(types.Of(root, q.schema.RootKey()), types.ASC)

	q.stmt = stmt
	q.phase = PhaseCompiled
	q.log.WithFields(logrus.Fields{
		"joins":   len(stmt.Joins()),
		"skipped": len(q.qc.skipped),
	}).Debug("query compiled")
	return stmt, nil
}

// Render compiles and renders the statement.
func (q *Query) Render(r Renderer) (*Compiled, error) {
	stmt, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return stmt.Render(r)
}

// base is the root joined to its info table, every table the tree
// registered, and the columns queried on non-root tables.
func (q *Query) base() *Statement {
	root, info := q.schema.Root(), q.schema.Info()

	stmt := NewStatement(root).Select(types.SelectField{Field: types.Of(root, q.schema.RootKey()), Alias: ColumnID})
	if q.schema.HasColumn(root.Name, ColumnFormula) {
		stmt = stmt.Select(types.SelectField{Field: types.Of(root, ColumnFormula), Alias: ColumnFormula})
	}
	if q.schema.HasColumn(info.Name, ColumnName) {
		stmt = stmt.Select(types.SelectField{Field: types.Of(info, ColumnName), Alias: ColumnName})
	}
	stmt = stmt.Join(types.Join{Type: types.InnerJoin, Table: info, On: q.qc.joinOn(info)})
	stmt = q.qc.flush(stmt)

	seen := make(map[string]bool)
	for _, node := range q.parser.SubFormsUsed() {
		sub, ok := node.(*SQLSubForm)
		if !ok {
			continue
		}
		table, ok := q.schema.TableFor(sub.Name)
		if !ok || table == root.Name || !q.qc.IsRequired(table) {
			continue
		}
		for _, field := range sub.FieldsQueried() {
			col, ok := q.schema.Column(table, field)
			if !ok || implicitColumns[col] {
				continue
			}
			label := table + "_" + col
			if seen[label] {
				continue
			}
			seen[label] = true
			stmt = stmt.Select(types.SelectField{Field: types.Of(types.Table{Name: table}, col), Alias: label})
		}
	}
	return stmt
}

// hooks specialize parsing for the constructions database.
type hooks struct {
	base   searchql.BaseHooks
	schema *Schema
}

// ParseFormName parses the anchor sub-form with the construction fields.
func (h *hooks) ParseFormName(name string) string {
	if name == "anchor" {
		return "construction"
	}
	return name
}

// ParseValue matches formulas by pattern, token by token for constructions.
func (h *hooks) ParseValue(formName, key string, value any) (searchql.Node, error) {
	s, isString := value.(string)
	switch {
	case !isString:
	case formName == "construction" && key == ColumnFormula:
		return NewTokensQuery(key, s), nil
	case (formName == "changes" || formName == "change") && (key == ColumnFormula || key == "stage"):
		return h.base.Registry.StringPattern(key, WildcardToLike(strings.TrimSpace(s)))
	}
	return h.base.ParseValue(formName, key, value)
}

// MakeConnective rejects sub-forms the schema cannot bind.
func (h *hooks) MakeConnective(formName string, items []searchql.Node, repeated bool) (searchql.Node, error) {
	if formName != "" {
		if _, ok := h.schema.TableFor(formName); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubForm, formName)
		}
	}
	return h.base.MakeConnective(formName, items, repeated)
}
