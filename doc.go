// Package searchql compiles nested search forms into expression trees.
//
// A form is an ordered mapping of field names to scalars, nested forms or
// lists of repeated forms. The Parser walks it and builds a tree of Node
// values: scalars become comparisons, nested forms become SubForm nodes
// wrapping a Conjunction, and lists become ConjunctionCopies so that each
// entry binds to a distinct record.
//
// # Basic Usage
//
//	form := searchql.NewForm().
//		Set("construction", searchql.NewForm().
//			Set("formula", "np*").
//			Set("meaning", "minimizer"))
//
//	p := searchql.NewParser(searchql.BaseRegistry())
//	root, err := p.ParseForm(form)
//	fmt.Println(searchql.Tree(root))
//
// # Derived Fields
//
// Fields that do not map 1:1 to a comparison are handled by derivations
// registered per form name:
//
//	p := searchql.NewParser(reg,
//		searchql.WithDerivations("changes",
//			searchql.NewValueWithSign("duration", "duration_sign"),
//			searchql.MustValueBetween("duration__from", "duration__to")))
//
// # Backends
//
// A backend forks the base registry and overrides the kinds it compiles,
// e.g. "SQL" + "Comparison". The parser resolves every node by name, so the
// same parsing code yields backend nodes. See the relational package.
package searchql
