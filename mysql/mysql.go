// Package mysql provides the MySQL and MariaDB dialect renderer for searchql.
package mysql

import (
	"strings"

	"github.com/diachronicon/searchql/internal/render"
	"github.com/diachronicon/searchql/internal/types"
)

// Renderer implements the MySQL dialect renderer.
type Renderer struct{}

// New creates a new MySQL renderer.
func New() *Renderer {
	return &Renderer{}
}

// Name returns the dialect name.
func (r *Renderer) Name() string {
	return "mysql"
}

// Render converts an AST to a QueryResult with MySQL SQL.
func (r *Renderer) Render(ast *types.AST) (*types.QueryResult, error) {
	return render.Select(r, ast)
}

// QuoteIdentifier backtick-quotes name, doubling embedded backticks.
func (r *Renderer) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// LeadingChar returns the first character of expr.
func (r *Renderer) LeadingChar(expr string) string {
	return "LEFT(" + expr + ", 1)"
}

// Capabilities returns the SQL features supported by MySQL.
// The default collations compare case-insensitively.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		LikeFoldsCase: true,
	}
}
