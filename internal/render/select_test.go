package render_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

type plainDialect struct {
	caps render.Capabilities
}

func (plainDialect) Name() string                        { return "plain" }
func (plainDialect) QuoteIdentifier(name string) string  { return name }
func (plainDialect) LeadingChar(expr string) string      { return "FIRST(" + expr + ")" }
func (d plainDialect) Capabilities() render.Capabilities { return d.caps }

var ilike = plainDialect{caps: render.Capabilities{CaseInsensitiveLike: true}}

func books() types.Table { return types.Table{Name: "books"} }

func TestSelect_Basic(t *testing.T) {
	ast := &types.AST{
		Target: books(),
		Fields: []types.SelectField{{Field: types.Of(books(), "id"), Alias: "id"}},
		WhereClause: types.And(
			types.Condition{Field: types.Of(books(), "genre"), Operator: types.EQ, Value: types.Param{Name: "genre"}},
			types.Condition{Field: types.Of(books(), "title"), Operator: types.ILIKE, Value: types.Param{Name: "title"}},
		),
		Ordering: []types.OrderBy{{Field: types.Of(books(), "id"), Direction: types.ASC}},
	}

	result, err := render.Select(ilike, ast)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "SELECT books.id AS id FROM books WHERE (books.genre = :genre AND books.title ILIKE :title) ORDER BY books.id ASC"
	if result.SQL != expected {
		t.Errorf("Expected SQL:\n%s\nGot:\n%s", expected, result.SQL)
	}
	if !reflect.DeepEqual(result.RequiredParams, []string{"genre", "title"}) {
		t.Errorf("Expected [genre title], got %v", result.RequiredParams)
	}
}

func TestSelect_ParamsAreDeduplicated(t *testing.T) {
	ast := &types.AST{
		Target: books(),
		Fields: []types.SelectField{{Field: types.Of(books(), "id")}},
		WhereClause: types.Or(
			types.Condition{Field: types.Of(books(), "a"), Operator: types.EQ, Value: types.Param{Name: "v"}},
			types.Condition{Field: types.Of(books(), "b"), Operator: types.EQ, Value: types.Param{Name: "v"}},
		),
	}

	result, err := render.Select(ilike, ast)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.RequiredParams) != 1 {
		t.Errorf("Expected one param, got %v", result.RequiredParams)
	}
}

func TestSelect_Conditions(t *testing.T) {
	high := types.Param{Name: "hi"}
	step := types.Param{Name: "step"}
	id := types.Of(books(), "id")
	e1 := types.Table{Name: "editions", Alias: "editions_1"}

	tests := []struct {
		desc     string
		cond     types.ConditionItem
		expected string
	}{
		{
			"between",
			types.BetweenCondition{Field: types.Of(books(), "year"), Low: types.Param{Name: "lo"}, High: high},
			"books.year BETWEEN :lo AND :hi",
		},
		{
			"field comparison with offset",
			types.FieldComparison{LeftField: types.Of(e1, "year"), Operator: types.EQ, RightField: types.Of(books(), "year"), Offset: &step},
			"editions_1.year = books.year + :step",
		},
		{
			"difference",
			types.DifferenceCondition{Minuend: types.Of(books(), "last"), Subtrahend: types.Of(books(), "first"), Operator: types.GE, Value: types.Param{Name: "d"}},
			"(books.last - books.first) >= :d",
		},
		{
			"difference range",
			types.DifferenceCondition{Minuend: types.Of(books(), "last"), Subtrahend: types.Of(books(), "first"), Value: types.Param{Name: "lo"}, High: &high},
			"(books.last - books.first) BETWEEN :lo AND :hi",
		},
		{
			"count distinct",
			types.AggregateCondition{Func: types.AggCountDistinct, Field: &id, Operator: types.LE, Value: types.Param{Name: "n"}},
			"COUNT(DISTINCT books.id) <= :n",
		},
		{
			"count star",
			types.AggregateCondition{Func: types.AggCount, Operator: types.GT, Value: types.Param{Name: "n"}},
			"COUNT(*) > :n",
		},
		{
			"leading char",
			types.LeadingCharCondition{Field: types.Of(books(), "title"), Low: types.Param{Name: "lo"}, High: high},
			"FIRST(books.title) BETWEEN :lo AND :hi",
		},
		{
			"null as zero",
			types.Condition{Field: types.Field{Name: "cnt", Table: "c", NullAsZero: true}, Operator: types.LT, Value: types.Param{Name: "n"}},
			"COALESCE(c.cnt, 0) < :n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			ast := &types.AST{
				Target:      books(),
				Fields:      []types.SelectField{{Field: id}},
				WhereClause: tt.cond,
			}
			result, err := render.Select(ilike, ast)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			expected := "SELECT books.id FROM books WHERE " + tt.expected
			if result.SQL != expected {
				t.Errorf("Expected SQL:\n%s\nGot:\n%s", expected, result.SQL)
			}
		})
	}
}

func TestSelect_GroupByHaving(t *testing.T) {
	id := types.Of(books(), "id")
	reviews := types.Table{Name: "reviews"}
	rid := types.Of(reviews, "id")
	ast := &types.AST{
		Target: books(),
		Fields: []types.SelectField{{Field: id, Alias: "id"}},
		Joins: []types.Join{{
			Type:  types.LeftJoin,
			Table: reviews,
			On:    types.FieldComparison{LeftField: types.Of(reviews, "book_id"), Operator: types.EQ, RightField: id},
		}},
		GroupBy: []types.Field{id},
		Having: []types.ConditionItem{
			types.AggregateCondition{Func: types.AggCountDistinct, Field: &rid, Operator: types.GE, Value: types.Param{Name: "n"}},
		},
	}

	result, err := render.Select(ilike, ast)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := "SELECT books.id AS id FROM books LEFT JOIN reviews ON reviews.book_id = books.id " +
		"GROUP BY books.id HAVING COUNT(DISTINCT reviews.id) >= :n"
	if result.SQL != expected {
		t.Errorf("Expected SQL:\n%s\nGot:\n%s", expected, result.SQL)
	}
}

func TestSelect_SubqueryParamsAreShared(t *testing.T) {
	editions := types.Table{Name: "editions"}
	sub := &types.AST{
		Target: editions,
		Fields: []types.SelectField{
			{Field: types.Of(editions, "book_id"), Alias: "fk"},
			{Aggregate: types.AggCount, Alias: "cnt"},
		},
		WhereClause: types.Condition{Field: types.Of(editions, "format"), Operator: types.EQ, Value: types.Param{Name: "format"}},
		GroupBy:     []types.Field{types.Of(editions, "book_id")},
	}
	derived := types.Table{Name: "editions", Alias: "ed"}
	ast := &types.AST{
		Target: books(),
		Fields: []types.SelectField{{Field: types.Of(books(), "id")}},
		Joins: []types.Join{{
			Type:     types.LeftJoin,
			Table:    derived,
			Subquery: sub,
			On:       types.FieldComparison{LeftField: types.Of(derived, "fk"), Operator: types.EQ, RightField: types.Of(books(), "id")},
		}},
		WhereClause: types.Condition{Field: types.Field{Name: "cnt", Table: "ed", NullAsZero: true}, Operator: types.GE, Value: types.Param{Name: "n"}},
	}

	result, err := render.Select(ilike, ast)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := "SELECT books.id FROM books LEFT JOIN (SELECT editions.book_id AS fk, COUNT(*) AS cnt FROM editions " +
		"WHERE editions.format = :format GROUP BY editions.book_id) AS ed ON ed.fk = books.id WHERE COALESCE(ed.cnt, 0) >= :n"
	if result.SQL != expected {
		t.Errorf("Expected SQL:\n%s\nGot:\n%s", expected, result.SQL)
	}
	if !reflect.DeepEqual(result.RequiredParams, []string{"format", "n"}) {
		t.Errorf("Expected [format n], got %v", result.RequiredParams)
	}
}

func TestSelect_Validation(t *testing.T) {
	id := types.Of(books(), "id")
	tests := map[string]*types.AST{
		"no target": {Fields: []types.SelectField{{Field: id}}},
		"no fields": {Target: books()},
		"having without group by": {
			Target: books(),
			Fields: []types.SelectField{{Field: id}},
			Having: []types.ConditionItem{types.AggregateCondition{Func: types.AggCount, Operator: types.GT, Value: types.Param{Name: "n"}}},
		},
		"join without on": {
			Target: books(),
			Fields: []types.SelectField{{Field: id}},
			Joins:  []types.Join{{Type: types.InnerJoin, Table: types.Table{Name: "reviews"}}},
		},
		"derived table without alias": {
			Target: books(),
			Fields: []types.SelectField{{Field: id}},
			Joins: []types.Join{{
				Type:     types.InnerJoin,
				Table:    types.Table{Name: "reviews"},
				Subquery: &types.AST{Target: types.Table{Name: "reviews"}, Fields: []types.SelectField{{Field: id}}},
				On:       types.FieldComparison{LeftField: id, Operator: types.EQ, RightField: id},
			}},
		},
	}

	for desc, ast := range tests {
		t.Run(desc, func(t *testing.T) {
			if _, err := render.Select(ilike, ast); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSelect_MaxSubqueryDepth(t *testing.T) {
	id := types.Of(books(), "id")
	nest := func(inner *types.AST, alias string) *types.AST {
		ast := &types.AST{Target: books(), Fields: []types.SelectField{{Field: id}}}
		if inner != nil {
			ast.Joins = []types.Join{{
				Type:     types.InnerJoin,
				Table:    types.Table{Name: "books", Alias: alias},
				Subquery: inner,
				On:       types.FieldComparison{LeftField: id, Operator: types.EQ, RightField: id},
			}}
		}
		return ast
	}

	var ast *types.AST
	for i := 0; i <= types.MaxSubqueryDepth; i++ {
		ast = nest(ast, "s")
	}
	if _, err := render.Select(ilike, ast); err != nil {
		t.Fatalf("Expected depth %d to render, got %v", types.MaxSubqueryDepth, err)
	}

	ast = nest(ast, "s")
	_, err := render.Select(ilike, ast)
	if err == nil || !strings.Contains(err.Error(), "maximum subquery depth") {
		t.Errorf("Expected depth error, got %v", err)
	}
}

func TestSelect_CaseInsensitiveLike(t *testing.T) {
	ast := &types.AST{
		Target:      books(),
		Fields:      []types.SelectField{{Field: types.Of(books(), "id")}},
		WhereClause: types.Condition{Field: types.Of(books(), "title"), Operator: types.ILIKE, Value: types.Param{Name: "t"}},
	}

	folding := plainDialect{caps: render.Capabilities{LikeFoldsCase: true}}
	result, err := render.Select(folding, ast)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result.SQL, "books.title LIKE :t") {
		t.Errorf("Expected LIKE, got %s", result.SQL)
	}

	_, err = render.Select(plainDialect{}, ast)
	if !render.IsUnsupported(err) {
		t.Errorf("Expected UnsupportedFeatureError, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "plain: case-insensitive pattern match") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestUnsupportedFeatureError_Hint(t *testing.T) {
	err := render.NewUnsupportedFeatureError("mssql", "regex", "use LIKE")
	if err.Error() != "mssql: regex is not supported: use LIKE" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
