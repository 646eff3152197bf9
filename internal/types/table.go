package types

// Table is a table reference with an optional alias.
type Table struct {
	Name  string
	Alias string
}

// Ref returns the name columns of this table are qualified with.
func (t Table) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Aliased reports whether t is a second (or further) reference to its table.
func (t Table) Aliased() bool {
	return t.Alias != ""
}
