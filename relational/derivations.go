package relational

import (
	"github.com/diachronicon/searchql"
)

// Derived field names of the search page.
const (
	FieldNumChanges     = "num_changes"
	FieldAnchorLength   = "anchor_length"
	FieldNumCapitalized = "num_capitalized"
	FieldDuration       = "duration"
)

func between(field string) *searchql.ValueBetween {
	return searchql.MustValueBetween(field+searchql.KeySeparator+"from", field+searchql.KeySeparator+"to")
}

func wrapped(d searchql.Derivation, wrap func(searchql.Node) (searchql.Node, error)) *searchql.ComplexField {
	return &searchql.ComplexField{Inner: d, Wrap: wrap}
}

func resultOf(wrap func(searchql.Node) (searchql.Node, error)) searchql.ComparisonFunc {
	return func(reg *searchql.Registry, param string, op searchql.Op, value any) (searchql.Node, error) {
		inner, err := reg.Comparison(param, op, value)
		if err != nil {
			return nil, err
		}
		return wrap(inner)
	}
}

func elementCount(ranges []CharRange) func(searchql.Node) (searchql.Node, error) {
	return func(inner searchql.Node) (searchql.Node, error) {
		return NewElementCount(inner, ranges)
	}
}

// DefaultDerivations returns the derivations of the search page per
// sub-form name.
func DefaultDerivations() map[string][]searchql.Derivation {
	numChanges := searchql.NewValueWithSign(FieldNumChanges, FieldNumChanges+"_sign")
	numChanges.Result = resultOf(NewChangeCount)

	duration := searchql.NewValueWithSign(FieldDuration, FieldDuration+"_sign")
	duration.Result = resultOf(NewDuration)

	return map[string][]searchql.Derivation{
		"construction": {
			numChanges,
			wrapped(between(FieldNumChanges), NewChangeCount),
			wrapped(between(FieldAnchorLength), elementCount(LowercaseLetters)),
			wrapped(between(FieldNumCapitalized), elementCount(UppercaseLetters)),
		},
		"changes": {
			duration,
			wrapped(between(FieldDuration), NewDuration),
			between("first_attested"),
			between("last_attested"),
		},
	}
}
