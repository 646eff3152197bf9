package relational_test

import (
	"testing"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/relational"
)

func TestRegistry_BuildsRelationalNodes(t *testing.T) {
	reg := relational.Registry()
	if reg != relational.Registry() {
		t.Error("Expected Registry to return the same instance")
	}
	if reg.Prefix() != relational.Prefix {
		t.Errorf("Expected prefix %q, got %q", relational.Prefix, reg.Prefix())
	}

	cmp, err := reg.Comparison("stage", searchql.Eq, "Cop")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := cmp.(*relational.SQLComparison); !ok {
		t.Errorf("Expected *SQLComparison, got %T", cmp)
	}

	nodes := map[string]func() (searchql.Node, error){
		"range":    func() (searchql.Node, error) { return reg.RangeComparison("year", 1800, 1900) },
		"pattern":  func() (searchql.Node, error) { return reg.StringPattern("stage", "a%") },
		"and":      func() (searchql.Node, error) { return reg.Conjunction([]searchql.Node{cmp}) },
		"copies":   func() (searchql.Node, error) { return reg.ConjunctionCopies([]searchql.Node{cmp}) },
		"or":       func() (searchql.Node, error) { return reg.Disjunction([]searchql.Node{cmp}) },
		"sub-form": func() (searchql.Node, error) { return reg.SubForm("changes", cmp) },
	}
	for desc, build := range nodes {
		t.Run(desc, func(t *testing.T) {
			n, err := build()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if _, ok := n.(relational.Node); !ok {
				t.Errorf("Expected a relational node, got %T", n)
			}
		})
	}
}

func TestRegistry_LeavesBaseUntouched(t *testing.T) {
	_ = relational.NewRegistry()

	n, err := searchql.BaseRegistry().Comparison("stage", searchql.Eq, "Cop")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := n.(relational.Node); ok {
		t.Errorf("Expected a generic node from the base registry, got %T", n)
	}
}

func TestRegistry_NodesEqualGenericNodes(t *testing.T) {
	reg := relational.Registry()
	sqlNode, _ := reg.SubForm("changes", mustNode(reg.Conjunction([]searchql.Node{
		mustNode(reg.Comparison("stage", searchql.Eq, "Cop")),
	})))
	generic := &searchql.SubForm{Name: "changes", Content: &searchql.Conjunction{Items: []searchql.Node{
		&searchql.Comparison{Param: "stage", Op: searchql.Eq, Value: "Cop"},
	}}}

	if !searchql.Equal(sqlNode, generic) {
		t.Errorf("Expected equal trees:\n%s\n%s", searchql.Tree(sqlNode), searchql.Tree(generic))
	}
}

func TestRegistry_InvalidComparison(t *testing.T) {
	if _, err := relational.Registry().Comparison("stage", searchql.Op(99), "x"); err == nil {
		t.Error("Expected an error for an invalid operator")
	}
}

func mustNode(n searchql.Node, err error) searchql.Node {
	if err != nil {
		panic(err)
	}
	return n
}
