package searchql_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/diachronicon/searchql"
)

func and(items ...searchql.Node) *searchql.Conjunction {
	return &searchql.Conjunction{Items: items}
}

func copies(items ...searchql.Node) *searchql.ConjunctionCopies {
	return &searchql.ConjunctionCopies{Items: items}
}

func sub(name string, content searchql.Node) *searchql.SubForm {
	return &searchql.SubForm{Name: name, Content: content}
}

func parse(t *testing.T, form *searchql.Form, opts ...searchql.ParserOption) searchql.Node {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]searchql.ParserOption{searchql.WithLogger(logger)}, opts...)
	root, err := searchql.NewParser(searchql.BaseRegistry(), opts...).ParseForm(form)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return root
}

func assertTree(t *testing.T, want, got searchql.Node) {
	t.Helper()
	if !searchql.Equal(want, got) {
		t.Errorf("Tree mismatch:\nExpected:\n%s\nGot:\n%s", searchql.Tree(want), searchql.Tree(got))
	}
}

func TestParse_EmptyValuesAreSkipped(t *testing.T) {
	form := searchql.NewForm().
		Set("a", nil).
		Set("b", "").
		Set("c", 1).
		Set("d", searchql.NewForm().Set("x", "")).
		Set("e", searchql.FormList{}).
		Set("f", searchql.FormList{searchql.NewForm().Set("y", nil)}).
		Set("g", false).
		Set("h", 0)

	root := parse(t, form)
	assertTree(t, and(
		cmp("c", searchql.Eq, 1),
		cmp("g", searchql.Eq, false),
		cmp("h", searchql.Eq, 0),
	), root)

	for _, field := range root.FieldsQueried() {
		switch field {
		case "a", "b", "x", "y":
			t.Errorf("Empty field %q must not be referenced", field)
		}
	}
}

func TestParse_DerivationConsumption(t *testing.T) {
	form := searchql.NewForm().Set("duration", 200).Set("duration_sign", "ge").Set("formula", "np*")

	p := searchql.NewParser(searchql.BaseRegistry(),
		searchql.WithDerivations("", searchql.NewValueWithSign("duration", "duration_sign")))
	root, err := p.ParseForm(form)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	assertTree(t, and(
		cmp("duration", searchql.Ge, 200),
		cmp("formula", searchql.Eq, "np*"),
	), root)
}

func TestParse_DerivationsRunPerSubForm(t *testing.T) {
	form := searchql.NewForm().
		Set("changes", searchql.FormList{
			searchql.NewForm().Set("duration", 200).Set("duration_sign", "ge"),
		}).
		Set("construction", searchql.NewForm().Set("duration", 5).Set("duration_sign", "lt"))

	root := parse(t, form,
		searchql.WithDerivations("changes", searchql.NewValueWithSign("duration", "duration_sign")))

	assertTree(t, and(
		sub("changes", copies(and(cmp("duration", searchql.Ge, 200)))),
		sub("construction", and(
			cmp("duration", searchql.Eq, 5),
			cmp("duration_sign", searchql.Eq, "lt"),
		)),
	), root)
}

func TestParse_SubFormWrapping(t *testing.T) {
	form := searchql.NewForm().Set("construction", searchql.NewForm().
		Set("formula", "np*").
		Set("meaning", "minimizer"))

	assertTree(t, and(
		sub("construction", and(
			cmp("formula", searchql.Eq, "np*"),
			cmp("meaning", searchql.Eq, "minimizer"),
		)),
	), parse(t, form))
}

func TestParse_CopiesSemantics(t *testing.T) {
	t.Run("two entries", func(t *testing.T) {
		form := searchql.NewForm().Set("changes", searchql.FormList{
			searchql.NewForm().Set("stage", "a"),
			searchql.NewForm().Set("stage", "b"),
		})
		assertTree(t, and(
			sub("changes", copies(
				and(cmp("stage", searchql.Eq, "a")),
				and(cmp("stage", searchql.Eq, "b")),
			)),
		), parse(t, form))
	})

	t.Run("one entry", func(t *testing.T) {
		form := searchql.NewForm().Set("changes", searchql.FormList{
			searchql.NewForm().Set("stage", "a"),
		})
		assertTree(t, and(
			sub("changes", copies(and(cmp("stage", searchql.Eq, "a")))),
		), parse(t, form))
	})

	t.Run("any list", func(t *testing.T) {
		form := searchql.NewForm().Set("formula_elements", searchql.FormList{
			searchql.NewForm().Set("value", "np"),
		})
		root := parse(t, form)
		content := root.(*searchql.Conjunction).Items[0].(*searchql.SubForm).Content
		if content.Kind() != searchql.KindConjunctionCopies {
			t.Errorf("Expected ConjunctionCopies, got %s", content.Kind())
		}
	})

	t.Run("changes mapping", func(t *testing.T) {
		form := searchql.NewForm().Set("changes", searchql.NewForm().Set("stage", "a").Set("level", "syntax"))
		assertTree(t, and(
			sub("changes", copies(
				cmp("stage", searchql.Eq, "a"),
				cmp("level", searchql.Eq, "syntax"),
			)),
		), parse(t, form))
	})
}

func TestParse_UnsupportedValueIsIgnored(t *testing.T) {
	logger, hook := test.NewNullLogger()
	form := searchql.NewForm().Set("tags", []string{"a"}).Set("formula", "np*")

	root, err := searchql.NewParser(searchql.BaseRegistry(), searchql.WithLogger(logger)).ParseForm(form)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assertTree(t, and(cmp("formula", searchql.Eq, "np*")), root)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["field"] == "tags" {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning for the unsupported value")
	}
}

func TestParse_InvalidOperatorPropagates(t *testing.T) {
	form := searchql.NewForm().Set("changes", searchql.FormList{
		searchql.NewForm().Set("duration", 1).Set("duration_sign", "about"),
	})
	p := searchql.NewParser(searchql.BaseRegistry(),
		searchql.WithDerivations("changes", searchql.NewValueWithSign("duration", "duration_sign")))

	if _, err := p.ParseForm(form); !errors.Is(err, searchql.ErrInvalidOperator) {
		t.Errorf("Expected ErrInvalidOperator, got %v", err)
	}
}

func TestParse_SubFormsUsed(t *testing.T) {
	form := searchql.NewForm().
		Set("construction", searchql.NewForm().Set("formula", "np*")).
		Set("changes", searchql.FormList{searchql.NewForm().Set("stage", "a")}).
		Set("general_info", searchql.NewForm().Set("status", ""))

	p := searchql.NewParser(searchql.BaseRegistry())
	if _, err := p.ParseForm(form); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	used := p.SubFormsUsed()
	if len(used) != 2 {
		t.Fatalf("Expected 2 sub-forms, got %d", len(used))
	}
	for i, name := range []string{"construction", "changes"} {
		if used[i].(*searchql.SubForm).Name != name {
			t.Errorf("Expected sub-form %d to be %s, got %s", i, name, used[i].(*searchql.SubForm).Name)
		}
	}
}

type renamingHooks struct {
	searchql.BaseHooks
}

func (h renamingHooks) ParseFormName(name string) string {
	if name == "anchor" {
		return "construction"
	}
	return name
}

func (h renamingHooks) ParseValue(formName, key string, value any) (searchql.Node, error) {
	if s, ok := value.(string); ok && strings.Contains(s, "*") {
		return h.Registry.StringPattern(key, s)
	}
	return h.BaseHooks.ParseValue(formName, key, value)
}

func TestParse_Hooks(t *testing.T) {
	reg := searchql.BaseRegistry()
	form := searchql.NewForm().Set("anchor", searchql.NewForm().Set("formula", "np*").Set("meaning", "x"))

	root, err := searchql.NewParser(reg, searchql.WithHooks(renamingHooks{searchql.BaseHooks{Registry: reg}})).ParseForm(form)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assertTree(t, and(
		sub("anchor", and(
			&searchql.StringPattern{Param: "formula", Pattern: "np*"},
			cmp("meaning", searchql.Eq, "x"),
		)),
	), root)
}

func TestParser_AddDerivation(t *testing.T) {
	p := searchql.NewParser(searchql.BaseRegistry())
	p.AddDerivation("changes", searchql.MustValueBetween("duration__from", "duration__to"))
	if len(p.Derivations("changes")) != 1 {
		t.Errorf("Expected one derivation, got %d", len(p.Derivations("changes")))
	}
	if p.Registry() == nil {
		t.Error("Expected a registry")
	}
}

func TestParse_TreeDump(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := searchql.NewParser(searchql.BaseRegistry(), searchql.WithLogger(logger), searchql.WithTreeDump(true)).
		ParseForm(searchql.NewForm().Set("formula", "np*"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	last := hook.LastEntry()
	if last == nil || last.Message != "parsed form" {
		t.Fatalf("Expected a tree dump entry, got %v", last)
	}
	if tree, _ := last.Data["tree"].(string); !strings.Contains(tree, "formula = np*") {
		t.Errorf("Expected the tree in the entry, got %q", tree)
	}
}

func TestParse_NilForm(t *testing.T) {
	root := parse(t, nil)
	assertTree(t, and(), root)
}
