package render

import (
	"fmt"
	"strings"

	"github.com/diachronicon/searchql/internal/types"
)

// Dialect is what a SQL flavour contributes to rendering.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// LeadingChar returns the expression for the first character of expr.
	LeadingChar(expr string) string
	Capabilities() Capabilities
}

// renderContext tracks parameters and subquery depth for one statement.
type renderContext struct {
	d          Dialect
	params     []string
	usedParams map[string]bool
	depth      int
}

func (ctx *renderContext) addParam(param types.Param) string {
	if !ctx.usedParams[param.Name] {
		ctx.params = append(ctx.params, param.Name)
		ctx.usedParams[param.Name] = true
	}
	return ":" + param.Name
}

// enter descends into a subquery. Parameters stay shared with the outer
// statement; the returned func restores the depth.
func (ctx *renderContext) enter() (func(), error) {
	if ctx.depth >= types.MaxSubqueryDepth {
		return nil, fmt.Errorf("maximum subquery depth (%d) exceeded", types.MaxSubqueryDepth)
	}
	ctx.depth++
	return func() { ctx.depth-- }, nil
}

// Select renders a SELECT statement with named parameters (:name) for sqlx.
func Select(d Dialect, ast *types.AST) (*types.QueryResult, error) {
	if err := ast.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AST: %w", err)
	}

	ctx := &renderContext{d: d, usedParams: make(map[string]bool)}
	var sql strings.Builder
	if err := renderSelect(ast, &sql, ctx); err != nil {
		return nil, err
	}

	return &types.QueryResult{
		SQL:            sql.String(),
		RequiredParams: ctx.params,
	}, nil
}

func renderSelect(ast *types.AST, sql *strings.Builder, ctx *renderContext) error {
	sql.WriteString("SELECT ")
	fields := make([]string, 0, len(ast.Fields))
	for _, f := range ast.Fields {
		fields = append(fields, renderSelectField(f, ctx))
	}
	sql.WriteString(strings.Join(fields, ", "))

	sql.WriteString(" FROM ")
	sql.WriteString(renderTable(ast.Target, ctx))

	for _, join := range ast.Joins {
		sql.WriteString(" ")
		sql.WriteString(string(join.Type))
		sql.WriteString(" ")
		if join.Subquery != nil {
			leave, err := ctx.enter()
			if err != nil {
				return err
			}
			sql.WriteString("(")
			err = renderSelect(join.Subquery, sql, ctx)
			leave()
			if err != nil {
				return err
			}
			sql.WriteString(") AS ")
			sql.WriteString(ctx.d.QuoteIdentifier(join.Table.Alias))
		} else {
			sql.WriteString(renderTable(join.Table, ctx))
		}
		sql.WriteString(" ON ")
		if err := renderCondition(join.On, sql, ctx); err != nil {
			return err
		}
	}

	if ast.WhereClause != nil {
		sql.WriteString(" WHERE ")
		if err := renderCondition(ast.WhereClause, sql, ctx); err != nil {
			return err
		}
	}

	if len(ast.GroupBy) > 0 {
		sql.WriteString(" GROUP BY ")
		groupFields := make([]string, 0, len(ast.GroupBy))
		for _, field := range ast.GroupBy {
			groupFields = append(groupFields, renderField(field, ctx))
		}
		sql.WriteString(strings.Join(groupFields, ", "))
	}

	if len(ast.Having) > 0 {
		sql.WriteString(" HAVING ")
		for i, cond := range ast.Having {
			if i > 0 {
				sql.WriteString(" AND ")
			}
			if err := renderCondition(cond, sql, ctx); err != nil {
				return err
			}
		}
	}

	if len(ast.Ordering) > 0 {
		sql.WriteString(" ORDER BY ")
		orderParts := make([]string, 0, len(ast.Ordering))
		for _, order := range ast.Ordering {
			orderParts = append(orderParts, fmt.Sprintf("%s %s", renderField(order.Field, ctx), order.Direction))
		}
		sql.WriteString(strings.Join(orderParts, ", "))
	}

	return nil
}

func renderTable(table types.Table, ctx *renderContext) string {
	quoted := ctx.d.QuoteIdentifier(table.Name)
	if table.Alias != "" {
		return quoted + " AS " + ctx.d.QuoteIdentifier(table.Alias)
	}
	return quoted
}

func renderField(field types.Field, ctx *renderContext) string {
	base := ctx.d.QuoteIdentifier(field.Name)
	if field.Table != "" {
		base = ctx.d.QuoteIdentifier(field.Table) + "." + base
	}
	if field.NullAsZero {
		return "COALESCE(" + base + ", 0)"
	}
	return base
}

func renderSelectField(f types.SelectField, ctx *renderContext) string {
	var expr string
	switch f.Aggregate {
	case types.AggCount:
		if f.Field.Name == "" {
			expr = "COUNT(*)"
		} else {
			expr = "COUNT(" + renderField(f.Field, ctx) + ")"
		}
	case types.AggCountDistinct:
		expr = "COUNT(DISTINCT " + renderField(f.Field, ctx) + ")"
	default:
		expr = renderField(f.Field, ctx)
	}
	if f.Alias != "" {
		expr += " AS " + ctx.d.QuoteIdentifier(f.Alias)
	}
	return expr
}

func renderCondition(cond types.ConditionItem, sql *strings.Builder, ctx *renderContext) error {
	switch c := cond.(type) {
	case types.Condition:
		op, err := renderOperator(c.Operator, ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sql, "%s %s %s", renderField(c.Field, ctx), op, ctx.addParam(c.Value))
	case types.ConditionGroup:
		if len(c.Conditions) == 0 {
			return fmt.Errorf("empty condition group")
		}
		sql.WriteString("(")
		for i, sub := range c.Conditions {
			if i > 0 {
				fmt.Fprintf(sql, " %s ", c.Logic)
			}
			if err := renderCondition(sub, sql, ctx); err != nil {
				return err
			}
		}
		sql.WriteString(")")
	case types.FieldComparison:
		op, err := renderOperator(c.Operator, ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sql, "%s %s %s", renderField(c.LeftField, ctx), op, renderField(c.RightField, ctx))
		if c.Offset != nil {
			sql.WriteString(" + ")
			sql.WriteString(ctx.addParam(*c.Offset))
		}
	case types.BetweenCondition:
		fmt.Fprintf(sql, "%s BETWEEN %s AND %s",
			renderField(c.Field, ctx), ctx.addParam(c.Low), ctx.addParam(c.High))
	case types.DifferenceCondition:
		diff := fmt.Sprintf("(%s - %s)", renderField(c.Minuend, ctx), renderField(c.Subtrahend, ctx))
		return renderCompare(sql, diff, c.Operator, c.Value, c.High, ctx)
	case types.AggregateCondition:
		var agg string
		switch {
		case c.Field == nil:
			agg = "COUNT(*)"
		case c.Func == types.AggCountDistinct:
			agg = "COUNT(DISTINCT " + renderField(*c.Field, ctx) + ")"
		default:
			agg = string(c.Func) + "(" + renderField(*c.Field, ctx) + ")"
		}
		return renderCompare(sql, agg, c.Operator, c.Value, c.High, ctx)
	case types.LeadingCharCondition:
		fmt.Fprintf(sql, "%s BETWEEN %s AND %s",
			ctx.d.LeadingChar(renderField(c.Field, ctx)), ctx.addParam(c.Low), ctx.addParam(c.High))
	case nil:
		return fmt.Errorf("missing condition")
	default:
		return fmt.Errorf("unknown condition type: %T", c)
	}
	return nil
}

func renderCompare(sql *strings.Builder, expr string, op types.Operator, value types.Param, high *types.Param, ctx *renderContext) error {
	if high != nil {
		fmt.Fprintf(sql, "%s BETWEEN %s AND %s", expr, ctx.addParam(value), ctx.addParam(*high))
		return nil
	}
	rendered, err := renderOperator(op, ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sql, "%s %s %s", expr, rendered, ctx.addParam(value))
	return nil
}

func renderOperator(op types.Operator, ctx *renderContext) (string, error) {
	caps := ctx.d.Capabilities()
	switch op {
	case types.EQ, types.NE, types.GT, types.GE, types.LT, types.LE, types.LIKE:
		return string(op), nil
	case types.ILIKE:
		if caps.CaseInsensitiveLike {
			return "ILIKE", nil
		}
		if caps.LikeFoldsCase {
			return "LIKE", nil
		}
		return "", NewUnsupportedFeatureError(ctx.d.Name(), "case-insensitive pattern match")
	}
	return "", fmt.Errorf("unsupported operator: %s", op)
}
