// Package store runs compiled searches against a database through sqlx.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/relational"
)

// ErrUnknownDriver is returned for a driver without a dialect.
var ErrUnknownDriver = errors.New("unknown database driver")

// Store executes searches on one database.
type Store struct {
	db       *sqlx.DB
	renderer relational.Renderer
	schema   *relational.Schema
	log      logrus.FieldLogger
	query    []relational.Option
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithSchema replaces DiachroniconSchema.
func WithSchema(schema *relational.Schema) Option {
	return func(s *Store) { s.schema = schema }
}

// WithQueryOptions applies opts to every Query the store creates.
func WithQueryOptions(opts ...relational.Option) Option {
	return func(s *Store) { s.query = append(s.query, opts...) }
}

// Open connects to dsn with driver and checks the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if _, err := RendererFor(driver); err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	s, err := New(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The dialect follows db.DriverName().
func New(db *sqlx.DB, opts ...Option) (*Store, error) {
	renderer, err := RendererFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:       db,
		renderer: renderer,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.schema == nil {
		s.schema = relational.DiachroniconSchema()
	}
	return s, nil
}

// DB returns the underlying database.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Result is a search outcome.
type Result struct {
	QueryID  string
	Tree     string
	Compiled *relational.Compiled
	Groups   *relational.Grouped
	Skipped  []relational.SkippedPredicate
}

// Compile parses and renders form without executing it.
func (s *Store) Compile(form *searchql.Form) (*relational.Query, *relational.Compiled, error) {
	return compile(form, s.schema, s.renderer, s.log, s.query)
}

// compile parses form with a fresh Query and renders it with r.
func compile(form *searchql.Form, schema *relational.Schema, r relational.Renderer, log logrus.FieldLogger, opts []relational.Option) (*relational.Query, *relational.Compiled, error) {
	q := relational.NewQuery(schema, append([]relational.Option{relational.WithLogger(log)}, opts...)...)
	if _, err := q.ParseForm(form); err != nil {
		return nil, nil, fmt.Errorf("parsing form: %w", err)
	}
	compiled, err := q.Render(r)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling form: %w", err)
	}
	return q, compiled, nil
}

// Search compiles form, runs it and groups the rows by construction.
func (s *Store) Search(ctx context.Context, form *searchql.Form) (*Result, error) {
	id := uuid.NewString()
	log := s.log.WithField("query_id", id)

	q, compiled, err := compile(form, s.schema, s.renderer, log, s.query)
	if err != nil {
		return nil, err
	}
	log.WithField("sql", compiled.SQL).Debug("executing search")

	rows, err := s.db.NamedQueryContext(ctx, compiled.SQL, compiled.Args)
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}
	defer rows.Close()

	var found []relational.Row
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		found = append(found, relational.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	groups := relational.GroupRows(found, relational.ColumnID)
	log.WithFields(logrus.Fields{"rows": len(found), "constructions": groups.Len()}).Info("search finished")
	return &Result{
		QueryID:  id,
		Tree:     q.Tree(),
		Compiled: compiled,
		Groups:   groups,
		Skipped:  q.Skipped(),
	}, nil
}
