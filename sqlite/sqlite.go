// Package sqlite provides the SQLite dialect renderer for searchql.
package sqlite

import (
	"strings"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

// Renderer implements the SQLite dialect renderer.
type Renderer struct{}

// New creates a new SQLite renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name returns the dialect name.
func (r *Renderer) Name() string {
	return "sqlite"
}

// Render converts an AST to a QueryResult with SQLite SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func (r *Renderer) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LeadingChar returns the first character of expr.
func (r *Renderer) LeadingChar(expr string) string {
	return "SUBSTR(" + expr + ", 1, 1)"
}

// Capabilities returns the SQL features supported by SQLite.
// LIKE folds ASCII case only.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		LikeFoldsCase: true,
	}
}
