// Package postgres provides the PostgreSQL dialect renderer for searchql.
package postgres

import (
	"github.com/lib/pq"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

// Renderer implements the PostgreSQL dialect renderer.
type Renderer struct{}

// New creates a new PostgreSQL renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name returns the dialect name.
func (r *Renderer) Name() string {
	return "postgres"
}

// Render converts an AST to a QueryResult with PostgreSQL SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func (r *Renderer) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// LeadingChar returns the first character of expr.
func (r *Renderer) LeadingChar(expr string) string {
	return "LEFT(" + expr + ", 1)"
}

// Capabilities returns the SQL features supported by PostgreSQL.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		CaseInsensitiveLike: true,
	}
}
