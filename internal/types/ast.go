package types

import "fmt"

// MaxSubqueryDepth bounds nesting of derived-table joins.
const MaxSubqueryDepth = 3

// Direction represents sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Field     Field
	Direction Direction
}

// JoinType represents the type of SQL join.
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// Join represents a JOIN clause. With Subquery set the joined relation is
// the derived table "(subquery) AS alias" and Table.Alias names it.
type Join struct {
	Type     JoinType
	Table    Table
	Subquery *AST
	On       ConditionItem
}

// AggregateFunc represents SQL aggregate functions.
type AggregateFunc string

const (
	AggCount         AggregateFunc = "COUNT"
	AggCountDistinct AggregateFunc = "COUNT_DISTINCT"
)

// SelectField is a projected column, optionally aggregated and labelled.
type SelectField struct {
	Field     Field
	Aggregate AggregateFunc
	Alias     string
}

// AST is a SELECT statement.
type AST struct {
	Target      Table
	Fields      []SelectField
	Joins       []Join
	WhereClause ConditionItem
	GroupBy     []Field
	Having      []ConditionItem
	Ordering    []OrderBy
}

// Validate performs basic validation on the AST.
func (ast *AST) Validate() error {
	return ast.validate(0)
}

func (ast *AST) validate(depth int) error {
	if ast.Target.Name == "" {
		return fmt.Errorf("target table is required")
	}
	if len(ast.Fields) == 0 {
		return fmt.Errorf("SELECT requires at least one field")
	}
	if len(ast.Having) > 0 && len(ast.GroupBy) == 0 {
		return fmt.Errorf("HAVING requires GROUP BY")
	}
	for _, join := range ast.Joins {
		if join.On == nil {
			return fmt.Errorf("join of %s requires an ON condition", join.Table.Ref())
		}
		if join.Subquery == nil {
			continue
		}
		if join.Table.Alias == "" {
			return fmt.Errorf("derived table join requires an alias")
		}
		if depth+1 > MaxSubqueryDepth {
			return fmt.Errorf("maximum subquery depth (%d) exceeded", MaxSubqueryDepth)
		}
		if err := join.Subquery.validate(depth + 1); err != nil {
			return fmt.Errorf("subquery %s: %w", join.Table.Alias, err)
		}
	}
	return nil
}
