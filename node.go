package searchql

import (
	"fmt"
	"reflect"
	"strings"
)

// Node kinds. A backend node reports the kind of the generic node it shadows.
const (
	KindComparison        = "Comparison"
	KindRangeComparison   = "RangeComparison"
	KindStringPattern     = "StringPattern"
	KindConjunction       = "Conjunction"
	KindConjunctionCopies = "ConjunctionCopies"
	KindDisjunction       = "Disjunction"
	KindSubForm           = "SubForm"
)

// Node is an element of a parsed query tree.
type Node interface {
	// Kind names the node's logical type, e.g. "Comparison".
	Kind() string
	// FieldsQueried lists the raw form fields the node consumes, in order.
	FieldsQueried() []string
	// Key is the tuple structural equality is defined over.
	Key() []any
	// Equal reports structural equality with another node.
	Equal(other Node) bool
	// WriteTree renders the node and its children starting at depth.
	WriteTree(w *TreeWriter, depth int)
}

// Equal reports whether a and b have the same kind and equal keys.
// Children of connectives are compared positionally.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	ka, kb := a.Key(), b.Key()
	if len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if !equalValue(ka[i], kb[i]) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if na, ok := a.(Node); ok {
		nb, ok := b.(Node)
		return ok && Equal(na, nb)
	}
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

// Comparison is "param op value".
type Comparison struct {
	Param string
	Op    Op
	Value any
}

// NewComparison validates op and builds a Comparison.
func NewComparison(param string, op Op, value any) (*Comparison, error) {
	if !op.Valid() {
		return nil, &InvalidOperatorError{Name: op.String(), Key: param}
	}
	return &Comparison{Param: param, Op: op, Value: value}, nil
}

func (c Comparison) Kind() string            { return KindComparison }
func (c Comparison) FieldsQueried() []string { return []string{c.Param} }
func (c Comparison) Key() []any              { return []any{c.Param, c.Op, c.Value} }
func (c Comparison) Equal(other Node) bool   { return Equal(c, other) }

func (c Comparison) WriteTree(w *TreeWriter, depth int) {
	w.Line(depth, c.String())
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Param, c.Op.Sign(), formatValue(c.Value))
}

// RangeComparison is "from ≤ param ≤ to". Either bound may be nil but not both.
type RangeComparison struct {
	Param string
	From  any
	To    any
}

// NewRangeComparison requires at least one non-empty bound.
func NewRangeComparison(param string, from, to any) (*RangeComparison, error) {
	if IsEmpty(from) && IsEmpty(to) {
		return nil, fmt.Errorf("range on %q needs at least one bound", param)
	}
	return &RangeComparison{Param: param, From: from, To: to}, nil
}

func (r RangeComparison) Kind() string            { return KindRangeComparison }
func (r RangeComparison) FieldsQueried() []string { return []string{r.Param} }
func (r RangeComparison) Key() []any              { return []any{r.Param, r.From, r.To} }
func (r RangeComparison) Equal(other Node) bool   { return Equal(r, other) }

func (r RangeComparison) WriteTree(w *TreeWriter, depth int) {
	w.Line(depth, r.String())
}

func (r RangeComparison) String() string {
	var b strings.Builder
	if !IsEmpty(r.From) {
		fmt.Fprintf(&b, "%s %s ", formatValue(r.From), LowerBoundOp.Mirror().Sign())
	}
	b.WriteString(r.Param)
	if !IsEmpty(r.To) {
		fmt.Fprintf(&b, " %s %s", UpperBoundOp.Sign(), formatValue(r.To))
	}
	return b.String()
}

// StringPattern matches param against a pattern that may carry backend wildcards.
type StringPattern struct {
	Param   string
	Pattern string
}

func (s StringPattern) Kind() string            { return KindStringPattern }
func (s StringPattern) FieldsQueried() []string { return []string{s.Param} }
func (s StringPattern) Key() []any              { return []any{s.Param, s.Pattern} }
func (s StringPattern) Equal(other Node) bool   { return Equal(s, other) }

func (s StringPattern) WriteTree(w *TreeWriter, depth int) {
	w.Line(depth, fmt.Sprintf("%s ~ %q", s.Param, s.Pattern))
}

// Conjunction is AND over independent facts.
type Conjunction struct {
	Items []Node
}

func (c Conjunction) Kind() string            { return KindConjunction }
func (c Conjunction) FieldsQueried() []string { return fieldsOf(c.Items) }
func (c Conjunction) Key() []any              { return keyOf(c.Items) }
func (c Conjunction) Equal(other Node) bool   { return Equal(c, other) }

func (c Conjunction) WriteTree(w *TreeWriter, depth int) {
	writeConnective(w, depth, "AND", c.Items)
}

// Extend appends children.
func (c *Conjunction) Extend(items ...Node) {
	c.Items = append(c.Items, items...)
}

// ConjunctionCopies is AND over repeated facts, each of which must hold for
// a distinct instance of the same child entity.
type ConjunctionCopies struct {
	Items []Node
}

func (c ConjunctionCopies) Kind() string            { return KindConjunctionCopies }
func (c ConjunctionCopies) FieldsQueried() []string { return fieldsOf(c.Items) }
func (c ConjunctionCopies) Key() []any              { return keyOf(c.Items) }
func (c ConjunctionCopies) Equal(other Node) bool   { return Equal(c, other) }

func (c ConjunctionCopies) WriteTree(w *TreeWriter, depth int) {
	writeConnective(w, depth, "AND (distinct instances)", c.Items)
}

// Extend appends children.
func (c *ConjunctionCopies) Extend(items ...Node) {
	c.Items = append(c.Items, items...)
}

// Disjunction is OR.
type Disjunction struct {
	Items []Node
}

func (d Disjunction) Kind() string            { return KindDisjunction }
func (d Disjunction) FieldsQueried() []string { return fieldsOf(d.Items) }
func (d Disjunction) Key() []any              { return keyOf(d.Items) }
func (d Disjunction) Equal(other Node) bool   { return Equal(d, other) }

func (d Disjunction) WriteTree(w *TreeWriter, depth int) {
	writeConnective(w, depth, "OR", d.Items)
}

// Extend appends children.
func (d *Disjunction) Extend(items ...Node) {
	d.Items = append(d.Items, items...)
}

// SubForm binds the parsed content of a nested form to the entity it filters.
type SubForm struct {
	Name    string
	Content Node
}

func (s SubForm) Kind() string { return KindSubForm }

func (s SubForm) FieldsQueried() []string {
	if s.Content == nil {
		return nil
	}
	return s.Content.FieldsQueried()
}

func (s SubForm) Key() []any            { return []any{s.Name, s.Content} }
func (s SubForm) Equal(other Node) bool { return Equal(s, other) }

func (s SubForm) WriteTree(w *TreeWriter, depth int) {
	w.Line(depth, "["+s.Name+"]:")
	if s.Content != nil {
		s.Content.WriteTree(w, depth+1)
	}
}

func writeConnective(w *TreeWriter, depth int, label string, items []Node) {
	w.Line(depth, label)
	for _, item := range items {
		item.WriteTree(w, depth+1)
	}
}

func fieldsOf(items []Node) []string {
	var fields []string
	for _, item := range items {
		fields = append(fields, item.FieldsQueried()...)
	}
	return fields
}

func keyOf(items []Node) []any {
	key := make([]any, len(items))
	for i, item := range items {
		key[i] = item
	}
	return key
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}
