package relational

import (
	"sync"

	"github.com/diachronicon/searchql"
)

// Prefix is the name prefix of the relational overrides, as in "SQLComparison".
const Prefix = "SQL"

var (
	registryOnce sync.Once
	registry     *searchql.Registry
)

// Registry returns the base registry forked with the relational nodes.
// It is built once and only read afterwards.
func Registry() *searchql.Registry {
	registryOnce.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

// NewRegistry forks a fresh base registry and overrides every generic kind
// with its relational node.
func NewRegistry() *searchql.Registry {
	r := searchql.BaseRegistry().MustFork(Prefix)

	r.MustOverride(Prefix+searchql.KindComparison, func(a searchql.Args) (searchql.Node, error) {
		c, err := searchql.NewComparison(a.Param, a.Op, a.Value)
		if err != nil {
			return nil, err
		}
		return &SQLComparison{*c}, nil
	})
	r.MustOverride(Prefix+searchql.KindRangeComparison, func(a searchql.Args) (searchql.Node, error) {
		rc, err := searchql.NewRangeComparison(a.Param, a.From, a.To)
		if err != nil {
			return nil, err
		}
		return &SQLRangeComparison{*rc}, nil
	})
	r.MustOverride(Prefix+searchql.KindStringPattern, func(a searchql.Args) (searchql.Node, error) {
		return &SQLStringPattern{searchql.StringPattern{Param: a.Param, Pattern: a.Pattern}}, nil
	})
	r.MustOverride(Prefix+searchql.KindConjunction, func(a searchql.Args) (searchql.Node, error) {
		return &SQLConjunction{searchql.Conjunction{Items: a.Items}}, nil
	})
	r.MustOverride(Prefix+searchql.KindConjunctionCopies, func(a searchql.Args) (searchql.Node, error) {
		return &SQLConjunctionCopies{searchql.ConjunctionCopies{Items: a.Items}}, nil
	})
	r.MustOverride(Prefix+searchql.KindDisjunction, func(a searchql.Args) (searchql.Node, error) {
		return &SQLDisjunction{searchql.Disjunction{Items: a.Items}}, nil
	})
	r.MustOverride(Prefix+searchql.KindSubForm, func(a searchql.Args) (searchql.Node, error) {
		return &SQLSubForm{searchql.SubForm{Name: a.Name, Content: a.Content}}, nil
	})
	return r
}
