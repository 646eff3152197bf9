package relational

import "errors"

var (
	// ErrAlreadyParsed is returned when a Query is given a second form.
	ErrAlreadyParsed = errors.New("query already parsed a form")

	// ErrNotParsed is returned when Compile runs before ParseForm.
	ErrNotParsed = errors.New("query has no parsed form")

	// ErrUnknownField is returned in strict mode for a field that does not
	// exist on the table it is bound to.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownSubForm is returned for a sub-form with no table.
	ErrUnknownSubForm = errors.New("unknown sub-form")

	// ErrNotCompilable is returned for a tree node with no relational form.
	ErrNotCompilable = errors.New("node cannot be compiled to SQL")

	// ErrUnsupported wraps a renderer's refusal of a construct its dialect
	// lacks.
	ErrUnsupported = errors.New("unsupported by dialect")
)
