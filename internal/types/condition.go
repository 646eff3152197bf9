package types

// ConditionItem is any element of a WHERE, HAVING or ON clause.
type ConditionItem interface {
	IsConditionItem()
}

// LogicOperator represents how conditions are combined.
type LogicOperator string

const (
	AND LogicOperator = "AND"
	OR  LogicOperator = "OR"
)

// Condition is "field op :value".
type Condition struct {
	Field    Field
	Operator Operator
	Value    Param
}

// ConditionGroup represents grouped conditions with AND/OR logic.
type ConditionGroup struct {
	Logic      LogicOperator
	Conditions []ConditionItem
}

// FieldComparison compares two columns. With Offset set the right side is
// "right + :offset".
type FieldComparison struct {
	LeftField  Field
	Operator   Operator
	RightField Field
	Offset     *Param
}

// BetweenCondition is "field BETWEEN :low AND :high".
type BetweenCondition struct {
	Field Field
	Low   Param
	High  Param
}

// DifferenceCondition compares "minuend - subtrahend" with a value, or with
// a range when High is set.
type DifferenceCondition struct {
	Minuend    Field
	Subtrahend Field
	Operator   Operator
	Value      Param
	High       *Param
}

// AggregateCondition is "AGG(field) op :value", or BETWEEN when High is set.
// A nil Field with AggCount means COUNT(*).
type AggregateCondition struct {
	Func     AggregateFunc
	Field    *Field
	Operator Operator
	Value    Param
	High     *Param
}

// LeadingCharCondition tests whether the first character of field falls in
// the closed range [:low, :high].
type LeadingCharCondition struct {
	Field Field
	Low   Param
	High  Param
}

func (Condition) IsConditionItem()            {}
func (ConditionGroup) IsConditionItem()       {}
func (FieldComparison) IsConditionItem()      {}
func (BetweenCondition) IsConditionItem()     {}
func (DifferenceCondition) IsConditionItem()  {}
func (AggregateCondition) IsConditionItem()   {}
func (LeadingCharCondition) IsConditionItem() {}

// And combines items, collapsing the trivial cases.
func And(items ...ConditionItem) ConditionItem {
	switch len(items) {
	case 0:
		return nil
	case 1:
		return items[0]
	}
	return ConditionGroup{Logic: AND, Conditions: items}
}

// Or combines items, collapsing the trivial cases.
func Or(items ...ConditionItem) ConditionItem {
	switch len(items) {
	case 0:
		return nil
	case 1:
		return items[0]
	}
	return ConditionGroup{Logic: OR, Conditions: items}
}
