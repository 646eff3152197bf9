package types

// Operator is a comparison operator as written in PostgreSQL. Dialects
// translate the ones they spell differently.
type Operator string

const (
	EQ Operator = "="
	NE Operator = "!="
	GT Operator = ">"
	GE Operator = ">="
	LT Operator = "<"
	LE Operator = "<="

	// ILIKE is a case-insensitive LIKE.
	ILIKE Operator = "ILIKE"
	LIKE  Operator = "LIKE"
)
