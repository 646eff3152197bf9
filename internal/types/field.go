package types

// Field is a column reference. Table holds the table name or alias.
type Field struct {
	Name  string
	Table string
	// NullAsZero renders the column as COALESCE(column, 0).
	NullAsZero bool
}

// Of qualifies a column with t.
func Of(t Table, column string) Field {
	return Field{Name: column, Table: t.Ref()}
}
