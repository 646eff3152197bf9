package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/diachronicon/searchql/mssql"
	"github.com/diachronicon/searchql/mysql"
	"github.com/diachronicon/searchql/postgres"
	"github.com/diachronicon/searchql/relational"
	"github.com/diachronicon/searchql/sqlite"

	// Database drivers, registered under the names Drivers lists.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Drivers maps the database/sql driver names the store accepts to their
// dialect.
var Drivers = map[string]string{
	"pgx":       "postgres",
	"postgres":  "postgres",
	"mysql":     "mysql",
	"sqlserver": "mssql",
	"mssql":     "mssql",
	"sqlite":    "sqlite",
}

// RendererFor returns the renderer of a driver or dialect name.
func RendererFor(name string) (relational.Renderer, error) {
	dialect, ok := Drivers[name]
	if !ok {
		dialect = name
	}
	switch dialect {
	case "postgres":
		return postgres.New(), nil
	case "mysql":
		return mysql.New(), nil
	case "mssql":
		return mssql.New(), nil
	case "sqlite":
		return sqlite.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}
