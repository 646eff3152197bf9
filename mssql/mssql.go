// Package mssql provides the SQL Server dialect renderer for searchql.
package mssql

import (
	"strings"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

// Renderer implements the SQL Server dialect renderer.
type Renderer struct{}

// New creates a new SQL Server renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name returns the dialect name.
func (r *Renderer) Name() string {
	return "mssql"
}

// Render converts an AST to a QueryResult with T-SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// QuoteIdentifier brackets name, doubling embedded closing brackets.
func (r *Renderer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// LeadingChar returns the first character of expr.
func (r *Renderer) LeadingChar(expr string) string {
	return "LEFT(" + expr + ", 1)"
}

// Capabilities returns the SQL features supported by SQL Server.
// The default collation compares case-insensitively.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		LikeFoldsCase: true,
	}
}
