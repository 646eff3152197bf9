package types

// Param is a named parameter. Values are always bound, never inlined.
type Param struct {
	Name string
}
