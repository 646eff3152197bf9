package searchql_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/diachronicon/searchql"
)

// shoutingComparison is a backend node used to check overrides.
type shoutingComparison struct {
	searchql.Comparison
}

func TestBaseRegistry(t *testing.T) {
	reg := searchql.BaseRegistry()

	want := []string{
		"Comparison", "Conjunction", "ConjunctionCopies", "Disjunction",
		"RangeComparison", "StringPattern", "SubForm",
	}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if reg.Prefix() != "" {
		t.Errorf("Expected empty prefix, got %q", reg.Prefix())
	}

	n, err := reg.Comparison("formula", searchql.Eq, "np*")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := n.(*searchql.Comparison); !ok {
		t.Errorf("Expected *Comparison, got %T", n)
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := searchql.NewRegistry()
	ctor := func(a searchql.Args) (searchql.Node, error) { return &searchql.Conjunction{Items: a.Items}, nil }

	if err := reg.Register("Conjunction", ctor); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	t.Run("duplicate", func(t *testing.T) {
		err := reg.Register("Conjunction", ctor)
		if !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}
	})

	t.Run("missing constructor", func(t *testing.T) {
		if err := reg.Register("Other", nil); !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}
	})

	t.Run("fork rejects register", func(t *testing.T) {
		fork := reg.MustFork("SQL")
		if err := fork.Register("Other", ctor); !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}
	})
}

func TestRegistry_Fork(t *testing.T) {
	base := searchql.BaseRegistry()

	if _, err := base.Fork(""); !errors.Is(err, searchql.ErrConfig) {
		t.Errorf("Expected ErrConfig for empty prefix, got %v", err)
	}

	fork := base.MustFork("Shout")
	if fork.Prefix() != "Shout" {
		t.Errorf("Expected prefix Shout, got %q", fork.Prefix())
	}
	if !reflect.DeepEqual(fork.Names(), base.Names()) {
		t.Errorf("Expected fork to start with the base names")
	}
}

func TestRegistry_Override(t *testing.T) {
	base := searchql.BaseRegistry()
	fork := base.MustFork("Shout")
	ctor := func(a searchql.Args) (searchql.Node, error) {
		return &shoutingComparison{searchql.Comparison{Param: a.Param, Op: a.Op, Value: a.Value}}, nil
	}

	t.Run("base registry rejects overrides", func(t *testing.T) {
		if err := base.Override("ShoutComparison", ctor); !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}
	})

	t.Run("name must carry the prefix", func(t *testing.T) {
		for _, name := range []string{"Comparison", "SQLComparison", "Shout", "ShoutUnknown"} {
			if err := fork.Override(name, ctor); !errors.Is(err, searchql.ErrConfig) {
				t.Errorf("Expected ErrConfig for %q, got %v", name, err)
			}
		}
	})

	t.Run("override shadows the base name", func(t *testing.T) {
		if err := fork.Override("ShoutComparison", ctor); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		n, err := fork.Comparison("formula", searchql.Eq, "np*")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := n.(*shoutingComparison); !ok {
			t.Errorf("Expected *shoutingComparison, got %T", n)
		}
		if !searchql.Equal(n, &searchql.Comparison{Param: "formula", Op: searchql.Eq, Value: "np*"}) {
			t.Error("Expected backend node to equal the generic node")
		}
	})

	t.Run("base registry is unaffected", func(t *testing.T) {
		n, _ := base.Comparison("formula", searchql.Eq, "np*")
		if _, ok := n.(*searchql.Comparison); !ok {
			t.Errorf("Expected *Comparison from base, got %T", n)
		}
	})

	t.Run("constructor must build the shadowed kind", func(t *testing.T) {
		wrong := base.MustFork("Bad")
		conjunction := func(a searchql.Args) (searchql.Node, error) {
			return &searchql.Conjunction{}, nil
		}
		if err := wrong.Override("BadComparison", conjunction); !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig at definition, got %v", err)
		}
		n, err := wrong.Comparison("x", searchql.Eq, 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := n.(*searchql.Comparison); !ok {
			t.Errorf("Expected the rejected override to leave the base constructor, got %T", n)
		}

		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected MustOverride to panic at definition")
			}
		}()
		wrong.MustOverride("BadComparison", conjunction)
	})

	t.Run("constructor must accept valid arguments", func(t *testing.T) {
		wrong := base.MustFork("Picky")
		err := wrong.Override("PickySubForm", func(a searchql.Args) (searchql.Node, error) {
			return nil, errors.New("no sub-forms here")
		})
		if !errors.Is(err, searchql.ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}
	})

	t.Run("MustOverride panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic")
			}
		}()
		fork.MustOverride("Comparison", ctor)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	fork := searchql.BaseRegistry().MustFork("SQL")

	_, err := fork.Lookup("TokensQuery")
	if !errors.Is(err, searchql.ErrLookup) {
		t.Fatalf("Expected ErrLookup, got %v", err)
	}
	var lookupErr *searchql.LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("Expected *LookupError, got %T", err)
	}
	if lookupErr.Name != "TokensQuery" || lookupErr.Registry != "SQL" {
		t.Errorf("Unexpected lookup error fields: %+v", lookupErr)
	}
}

func TestRegistry_BuildWrapsErrors(t *testing.T) {
	reg := searchql.BaseRegistry()
	_, err := reg.RangeComparison("n", nil, nil)
	if err == nil {
		t.Fatal("Expected error for a range without bounds")
	}
}
