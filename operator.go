package searchql

import (
	"fmt"
	"math"
	"strings"
)

// Op is one of the six comparison operators a form can request.
type Op int

// Supported operators.
const (
	Lt Op = iota + 1
	Gt
	Le
	Ge
	Eq
	Ne
)

// Bound strictness for ranges and single-sided "between" derivations.
const (
	LowerBoundOp = Ge
	UpperBoundOp = Le
)

var opNames = [...]string{Lt: "lt", Gt: "gt", Le: "le", Ge: "ge", Eq: "eq", Ne: "ne"}

var opSigns = [...]string{Lt: "<", Gt: ">", Le: "≤", Ge: "≥", Eq: "=", Ne: "≠"}

// ParseOp resolves a short operator name.
func ParseOp(name string) (Op, error) {
	for op := Lt; op <= Ne; op++ {
		if opNames[op] == name {
			return op, nil
		}
	}
	return 0, &InvalidOperatorError{Name: name}
}

// MustParseOp is ParseOp that panics on unknown names.
func MustParseOp(name string) Op {
	op, err := ParseOp(name)
	if err != nil {
		panic(err)
	}
	return op
}

// Valid reports whether op is one of the declared operators.
func (op Op) Valid() bool {
	return op >= Lt && op <= Ne
}

// String returns the short name (lt, gt, le, ge, eq, ne).
func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

// Sign returns the display sign used in tree rendering.
func (op Op) Sign() string {
	if !op.Valid() {
		return "?"
	}
	return opSigns[op]
}

// Mirror returns the operator with its operands swapped, so that "a op b"
// holds exactly when "b op.Mirror() a" does.
func (op Op) Mirror() Op {
	switch op {
	case Lt:
		return Gt
	case Gt:
		return Lt
	case Le:
		return Ge
	case Ge:
		return Le
	}
	return op
}

// Apply evaluates "a op b" in memory. Numbers of any width compare
// numerically, strings lexicographically, booleans only with eq and ne.
func (op Op) Apply(a, b any) (bool, error) {
	if !op.Valid() {
		return false, &InvalidOperatorError{Name: op.String()}
	}

	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return op.ordered(compareFloat(x, y)), nil
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return op.ordered(strings.Compare(x, y)), nil
	case bool:
		y, ok := b.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch op {
		case Eq:
			return x == y, nil
		case Ne:
			return x != y, nil
		}
		return false, fmt.Errorf("operator %s is not defined for booleans", op)
	case nil:
		switch op {
		case Eq:
			return b == nil, nil
		case Ne:
			return b != nil, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported operand type %T", a)
}

func (op Op) ordered(c int) bool {
	switch op {
	case Lt:
		return c < 0
	case Gt:
		return c > 0
	case Le:
		return c <= 0
	case Ge:
		return c >= 0
	case Eq:
		return c == 0
	default:
		return c != 0
	}
}

func compareFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
