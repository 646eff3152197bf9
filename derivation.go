package searchql

import (
	"fmt"
	"strings"
)

// KeySeparator splits a derived field name from its bound suffix, as in
// "duration__from".
const KeySeparator = "__"

// Derivation combines several raw fields of one mapping into a single node.
// Implementations read form without modifying it, skip keys already in
// consumed and add the keys they use. A nil node means nothing was derived.
type Derivation interface {
	Derive(form *Form, consumed KeySet, reg *Registry) (Node, error)
}

// DerivationFunc adapts a function to Derivation.
type DerivationFunc func(form *Form, consumed KeySet, reg *Registry) (Node, error)

// Derive calls fn.
func (fn DerivationFunc) Derive(form *Form, consumed KeySet, reg *Registry) (Node, error) {
	return fn(form, consumed, reg)
}

// ComparisonFunc builds the node for a derived single comparison.
type ComparisonFunc func(reg *Registry, param string, op Op, value any) (Node, error)

// RangeFunc builds the node for a derived two-sided range.
type RangeFunc func(reg *Registry, param string, from, to any) (Node, error)

func defaultComparison(reg *Registry, param string, op Op, value any) (Node, error) {
	return reg.Comparison(param, op, value)
}

func defaultRange(reg *Registry, param string, from, to any) (Node, error) {
	return reg.RangeComparison(param, from, to)
}

func lookup(form *Form, consumed KeySet, key string) (any, bool) {
	if key == "" || consumed.Has(key) {
		return nil, false
	}
	v, ok := form.Get(key)
	if !ok || IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// ValueWithSign reads a value and an operator name from two sibling keys,
// e.g. "duration" and "duration_sign".
type ValueWithSign struct {
	Param  string
	OpKey  string
	Result ComparisonFunc
}

// NewValueWithSign returns a derivation producing a registry Comparison.
func NewValueWithSign(param, opKey string) *ValueWithSign {
	return &ValueWithSign{Param: param, OpKey: opKey}
}

// Derive implements Derivation.
func (d *ValueWithSign) Derive(form *Form, consumed KeySet, reg *Registry) (Node, error) {
	value, ok := lookup(form, consumed, d.Param)
	if !ok {
		return nil, nil
	}
	raw, ok := lookup(form, consumed, d.OpKey)
	if !ok {
		return nil, nil
	}

	name, isString := raw.(string)
	if !isString {
		return nil, &InvalidOperatorError{Name: fmt.Sprint(raw), Key: d.OpKey}
	}
	op, err := ParseOp(name)
	if err != nil {
		return nil, &InvalidOperatorError{Name: name, Key: d.OpKey}
	}

	consumed.Add(d.Param, d.OpKey)
	result := d.Result
	if result == nil {
		result = defaultComparison
	}
	return result(reg, d.Param, op, value)
}

// ValueBetween reads a lower and an upper bound from two keys. Both bounds
// give a range, one bound gives a single-sided comparison using
// LowerBoundOp or UpperBoundOp.
type ValueBetween struct {
	KeyFrom string
	KeyTo   string
	// Param is the derived parameter name. When ParamKey is set the name is
	// read from that form key instead.
	Param    string
	ParamKey string
	Single   ComparisonFunc
	Between  RangeFunc
}

// NewValueBetween derives the parameter from the common prefix of keyFrom
// and keyTo before KeySeparator.
func NewValueBetween(keyFrom, keyTo string) (*ValueBetween, error) {
	from, _, okFrom := strings.Cut(keyFrom, KeySeparator)
	to, _, okTo := strings.Cut(keyTo, KeySeparator)
	if !okFrom || !okTo || from == "" || from != to {
		return nil, newConfigError(keyFrom+","+keyTo, "keys must share a prefix before %q", KeySeparator)
	}
	return &ValueBetween{KeyFrom: keyFrom, KeyTo: keyTo, Param: from}, nil
}

// MustValueBetween is NewValueBetween that panics.
func MustValueBetween(keyFrom, keyTo string) *ValueBetween {
	d, err := NewValueBetween(keyFrom, keyTo)
	if err != nil {
		panic(err)
	}
	return d
}

// Derive implements Derivation.
func (d *ValueBetween) Derive(form *Form, consumed KeySet, reg *Registry) (Node, error) {
	param := d.Param
	if d.ParamKey != "" {
		raw, ok := lookup(form, consumed, d.ParamKey)
		if !ok {
			return nil, nil
		}
		name, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("field %q must name a parameter, got %T", d.ParamKey, raw)
		}
		param = name
	}

	from, hasFrom := lookup(form, consumed, d.KeyFrom)
	to, hasTo := lookup(form, consumed, d.KeyTo)
	if !hasFrom && !hasTo {
		return nil, nil
	}

	if d.ParamKey != "" {
		consumed.Add(d.ParamKey)
	}

	single := d.Single
	if single == nil {
		single = defaultComparison
	}

	switch {
	case hasFrom && hasTo:
		consumed.Add(d.KeyFrom, d.KeyTo)
		between := d.Between
		if between == nil {
			between = defaultRange
		}
		return between(reg, param, from, to)
	case hasFrom:
		consumed.Add(d.KeyFrom)
		return single(reg, param, LowerBoundOp, from)
	default:
		consumed.Add(d.KeyTo)
		return single(reg, param, UpperBoundOp, to)
	}
}

// ComplexField wraps the node of an inner derivation, typically turning a
// comparison over a synthetic field into an aggregate fragment.
type ComplexField struct {
	Inner Derivation
	Wrap  func(inner Node) (Node, error)
}

// Derive implements Derivation.
func (d *ComplexField) Derive(form *Form, consumed KeySet, reg *Registry) (Node, error) {
	inner, err := d.Inner.Derive(form, consumed, reg)
	if err != nil || inner == nil {
		return nil, err
	}
	if d.Wrap == nil {
		return inner, nil
	}
	return d.Wrap(inner)
}
