package render

// Capabilities describes the SQL features a dialect offers the compiler.
type Capabilities struct {
	CaseInsensitiveLike bool // ILIKE operator
	LikeFoldsCase       bool // plain LIKE ignores case under the default collation
}
