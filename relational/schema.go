package relational

import (
	"fmt"
	"sort"

	"github.com/zoobzio/dbml"

	"github.com/diachronicon/searchql/internal/types"
)

// Relations describes how the tables of a project hang off the root table.
type Relations struct {
	// Root is the table every result row is about; RootKey its primary key.
	Root    string
	RootKey string
	// Info is joined 1:1 to Root in every statement.
	Info string
	// ForeignKey is the column every other table references Root with.
	ForeignKey string
	// SubForms maps sub-form names to tables.
	SubForms map[string]string
	// Renames maps table -> form field -> column.
	Renames map[string]map[string]string
}

// Schema is the capability descriptor the compiler checks fields against.
type Schema struct {
	project *dbml.Project
	rel     Relations
	columns map[string]map[string]bool
}

// NewSchema indexes project and validates rel against it.
func NewSchema(project *dbml.Project, rel Relations) (*Schema, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}

	s := &Schema{
		project: project,
		rel:     rel,
		columns: make(map[string]map[string]bool),
	}
	for _, table := range project.Tables {
		if !isValidSQLIdentifier(table.Name) {
			return nil, fmt.Errorf("invalid table name: %s", table.Name)
		}
		cols := make(map[string]bool)
		for _, col := range table.Columns {
			if !isValidSQLIdentifier(col.Name) {
				return nil, fmt.Errorf("invalid column name: %s.%s", table.Name, col.Name)
			}
			cols[col.Name] = true
		}
		s.columns[table.Name] = cols
	}

	if err := s.validateColumn(rel.Root, rel.RootKey); err != nil {
		return nil, err
	}
	if err := s.validateColumn(rel.Info, rel.ForeignKey); err != nil {
		return nil, err
	}
	for name, table := range rel.SubForms {
		if table == rel.Root {
			continue
		}
		if err := s.validateColumn(table, rel.ForeignKey); err != nil {
			return nil, fmt.Errorf("sub-form %q: %w", name, err)
		}
	}
	for table, renames := range rel.Renames {
		for field, column := range renames {
			if err := s.validateColumn(table, column); err != nil {
				return nil, fmt.Errorf("rename of %q: %w", field, err)
			}
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics.
func MustSchema(project *dbml.Project, rel Relations) *Schema {
	s, err := NewSchema(project, rel)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) validateColumn(table, column string) error {
	cols, ok := s.columns[table]
	if !ok {
		return fmt.Errorf("table '%s' not found in schema", table)
	}
	if !cols[column] {
		return fmt.Errorf("field '%s' not found in table '%s'", column, table)
	}
	return nil
}

// Project returns the underlying DBML project.
func (s *Schema) Project() *dbml.Project {
	return s.project
}

// Root returns the root table.
func (s *Schema) Root() types.Table {
	return types.Table{Name: s.rel.Root}
}

// RootKey returns the root table's key column.
func (s *Schema) RootKey() string {
	return s.rel.RootKey
}

// Info returns the table joined 1:1 to the root.
func (s *Schema) Info() types.Table {
	return types.Table{Name: s.rel.Info}
}

// ForeignKey returns the column child tables reference the root with.
func (s *Schema) ForeignKey() string {
	return s.rel.ForeignKey
}

// TableFor resolves the table a sub-form filters.
func (s *Schema) TableFor(subForm string) (string, bool) {
	table, ok := s.rel.SubForms[subForm]
	return table, ok
}

// SubForms returns the known sub-form names in sorted order.
func (s *Schema) SubForms() []string {
	names := make([]string, 0, len(s.rel.SubForms))
	for name := range s.rel.SubForms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasColumn reports whether table has column.
func (s *Schema) HasColumn(table, column string) bool {
	return s.columns[table][column]
}

// Column maps a form field to a column of table, applying renames.
func (s *Schema) Column(table, field string) (string, bool) {
	column := field
	if renamed, ok := s.rel.Renames[table][field]; ok {
		column = renamed
	}
	return column, s.HasColumn(table, column)
}

// isValidSQLIdentifier checks that s is letters, digits and underscores,
// not starting with a digit.
func isValidSQLIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Table names of the constructions database.
const (
	TableConstruction   = "construction"
	TableGeneralInfo    = "general_info"
	TableFormulaElement = "formula_element"
	TableChange         = "change"
	TableConstraint     = "constraint"
)

// DiachroniconProject describes the constructions database.
func DiachroniconProject() *dbml.Project {
	project := dbml.NewProject("diachronicon")

	construction := dbml.NewTable(TableConstruction)
	construction.AddColumn(dbml.NewColumn("id", "int"))
	construction.AddColumn(dbml.NewColumn("formula", "varchar"))
	construction.AddColumn(dbml.NewColumn("contemporary_meaning", "text"))
	construction.AddColumn(dbml.NewColumn("variation", "text"))
	construction.AddColumn(dbml.NewColumn("in_rus_constructicon", "boolean"))
	construction.AddColumn(dbml.NewColumn("rus_constructicon_id", "int"))
	construction.AddColumn(dbml.NewColumn("synt_function_of_anchor", "varchar"))
	construction.AddColumn(dbml.NewColumn("anchor_schema", "varchar"))
	construction.AddColumn(dbml.NewColumn("anchor_ru", "varchar"))
	construction.AddColumn(dbml.NewColumn("anchor_eng", "varchar"))
	project.AddTable(construction)

	info := dbml.NewTable(TableGeneralInfo)
	info.AddColumn(dbml.NewColumn("construction_id", "int"))
	info.AddColumn(dbml.NewColumn("name", "varchar"))
	info.AddColumn(dbml.NewColumn("author_name", "varchar"))
	info.AddColumn(dbml.NewColumn("author_surname", "varchar"))
	info.AddColumn(dbml.NewColumn("group_number", "varchar"))
	info.AddColumn(dbml.NewColumn("annotated_sample", "varchar"))
	info.AddColumn(dbml.NewColumn("term_paper", "varchar"))
	info.AddColumn(dbml.NewColumn("status", "varchar"))
	project.AddTable(info)

	element := dbml.NewTable(TableFormulaElement)
	element.AddColumn(dbml.NewColumn("id", "int"))
	element.AddColumn(dbml.NewColumn("construction_id", "int"))
	element.AddColumn(dbml.NewColumn("value", "varchar"))
	element.AddColumn(dbml.NewColumn("order", "int"))
	element.AddColumn(dbml.NewColumn("is_optional", "boolean"))
	element.AddColumn(dbml.NewColumn("has_variants", "boolean"))
	project.AddTable(element)

	change := dbml.NewTable(TableChange)
	change.AddColumn(dbml.NewColumn("id", "int"))
	change.AddColumn(dbml.NewColumn("construction_id", "int"))
	change.AddColumn(dbml.NewColumn("stage", "varchar"))
	change.AddColumn(dbml.NewColumn("level", "varchar"))
	change.AddColumn(dbml.NewColumn("type_of_change", "varchar"))
	change.AddColumn(dbml.NewColumn("first_attested", "int"))
	change.AddColumn(dbml.NewColumn("last_attested", "int"))
	change.AddColumn(dbml.NewColumn("first_example", "text"))
	change.AddColumn(dbml.NewColumn("last_example", "text"))
	change.AddColumn(dbml.NewColumn("comment", "text"))
	project.AddTable(change)

	constraint := dbml.NewTable(TableConstraint)
	constraint.AddColumn(dbml.NewColumn("id", "int"))
	constraint.AddColumn(dbml.NewColumn("change_id", "int"))
	constraint.AddColumn(dbml.NewColumn("construction_id", "int"))
	constraint.AddColumn(dbml.NewColumn("element", "varchar"))
	constraint.AddColumn(dbml.NewColumn("syntactic", "text"))
	constraint.AddColumn(dbml.NewColumn("semantic", "text"))
	project.AddTable(constraint)

	return project
}

// DiachroniconRelations wires the sub-forms of the search page to tables.
func DiachroniconRelations() Relations {
	changeRenames := map[string]string{"formula": "stage"}
	return Relations{
		Root:       TableConstruction,
		RootKey:    "id",
		Info:       TableGeneralInfo,
		ForeignKey: "construction_id",
		SubForms: map[string]string{
			"construction":     TableConstruction,
			"anchor":           TableConstruction,
			"general_info":     TableGeneralInfo,
			"info":             TableGeneralInfo,
			"changes":          TableChange,
			"change":           TableChange,
			"formula":          TableFormulaElement,
			"formula_elements": TableFormulaElement,
			"constraints":      TableConstraint,
		},
		Renames: map[string]map[string]string{
			TableConstruction: {
				"meaning":                  "contemporary_meaning",
				"synt_functions_of_anchor": "synt_function_of_anchor",
			},
			TableChange: changeRenames,
		},
	}
}

// DiachroniconSchema returns the schema of the constructions database.
func DiachroniconSchema() *Schema {
	return MustSchema(DiachroniconProject(), DiachroniconRelations())
}
