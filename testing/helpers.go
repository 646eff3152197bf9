// Package testing provides test utilities for searchql.
package testing

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/zoobzio/dbml"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/relational"
)

// TestSchema returns a small schema with one root table, its info table and
// two child tables, independent of the constructions database.
func TestSchema(t *testing.T) *relational.Schema {
	t.Helper()

	project := dbml.NewProject("test")

	books := dbml.NewTable("books")
	books.AddColumn(dbml.NewColumn("id", "bigint"))
	books.AddColumn(dbml.NewColumn("formula", "varchar"))
	books.AddColumn(dbml.NewColumn("genre", "varchar"))
	project.AddTable(books)

	info := dbml.NewTable("book_info")
	info.AddColumn(dbml.NewColumn("book_id", "bigint"))
	info.AddColumn(dbml.NewColumn("name", "varchar"))
	info.AddColumn(dbml.NewColumn("publisher", "varchar"))
	project.AddTable(info)

	editions := dbml.NewTable("editions")
	editions.AddColumn(dbml.NewColumn("id", "bigint"))
	editions.AddColumn(dbml.NewColumn("book_id", "bigint"))
	editions.AddColumn(dbml.NewColumn("year", "int"))
	editions.AddColumn(dbml.NewColumn("format", "varchar"))
	project.AddTable(editions)

	reviews := dbml.NewTable("reviews")
	reviews.AddColumn(dbml.NewColumn("id", "bigint"))
	reviews.AddColumn(dbml.NewColumn("book_id", "bigint"))
	reviews.AddColumn(dbml.NewColumn("stars", "int"))
	project.AddTable(reviews)

	schema, err := relational.NewSchema(project, relational.Relations{
		Root:       "books",
		RootKey:    "id",
		Info:       "book_info",
		ForeignKey: "book_id",
		SubForms: map[string]string{
			"book":     "books",
			"info":     "book_info",
			"editions": "editions",
			"reviews":  "reviews",
		},
	})
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return schema
}

// Form builds a form from alternating keys and values.
func Form(kv ...any) *searchql.Form {
	if len(kv)%2 != 0 {
		panic("Form needs key/value pairs")
	}
	f := searchql.NewForm()
	for i := 0; i < len(kv); i += 2 {
		f.Set(kv[i].(string), kv[i+1])
	}
	return f
}

// AssertSQL compares expected and actual SQL, reporting detailed differences.
func AssertSQL(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		t.Errorf("SQL mismatch:\nExpected: %s\nActual:   %s", expected, actual)
	}
}

// AssertSQLContains checks that actual contains every fragment.
func AssertSQLContains(t *testing.T, actual string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(actual, f) {
			t.Errorf("SQL missing fragment:\nFragment: %s\nSQL:      %s", f, actual)
		}
	}
}

// AssertParams checks that the required params match expected values.
func AssertParams(t *testing.T, expected, actual []string) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Param count mismatch: expected %d, got %d\nExpected: %v\nActual: %v",
			len(expected), len(actual), expected, actual)
		return
	}

	expectedMap := make(map[string]bool)
	for _, p := range expected {
		expectedMap[p] = true
	}

	for _, p := range actual {
		if !expectedMap[p] {
			t.Errorf("Unexpected param: %s\nExpected: %v\nActual: %v", p, expected, actual)
		}
	}
}

// AssertArgs checks the bound arguments. Integers compare by value
// regardless of width.
func AssertArgs(t *testing.T, expected, actual map[string]any) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Arg count mismatch: expected %d, got %d\nExpected: %s\nActual:   %s",
			len(expected), len(actual), formatArgs(expected), formatArgs(actual))
		return
	}
	for name, want := range expected {
		got, ok := actual[name]
		if !ok {
			t.Errorf("Missing arg %q\nActual: %s", name, formatArgs(actual))
			continue
		}
		if !sameValue(want, got) {
			t.Errorf("Arg %q: expected %v (%T), got %v (%T)", name, want, want, got, got)
		}
	}
}

func sameValue(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isInt(ra) && isInt(rb) {
		return ra.Int() == rb.Int()
	}
	return reflect.DeepEqual(a, b)
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func formatArgs(args map[string]any) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, args[name])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// AssertTreeEqual checks structural equality of two trees.
func AssertTreeEqual(t *testing.T, expected, actual searchql.Node) {
	t.Helper()
	if !searchql.Equal(expected, actual) {
		t.Errorf("Tree mismatch:\nExpected:\n%s\nActual:\n%s", searchql.Tree(expected), searchql.Tree(actual))
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertErrorContains checks that error message contains substring.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error containing %q but got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("Expected error containing %q, got: %v", substr, err)
	}
}

// AssertPanics verifies that a function panics.
func AssertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic but function completed normally")
		}
	}()
	fn()
}
