package searchql

import (
	"fmt"
	"strings"
)

// Record is an in-memory row: field values plus nested sub-records stored
// as Record or []Record under the sub-form name.
type Record map[string]any

// Match evaluates a generic tree against rec. Missing fields never match.
func Match(n Node, rec Record) (bool, error) {
	switch node := n.(type) {
	case nil:
		return true, nil
	case *Comparison:
		return matchComparison(*node, rec)
	case Comparison:
		return matchComparison(node, rec)
	case *RangeComparison:
		return matchRange(*node, rec)
	case RangeComparison:
		return matchRange(node, rec)
	case *StringPattern:
		return matchPattern(*node, rec)
	case StringPattern:
		return matchPattern(node, rec)
	case *Conjunction:
		return matchAll(node.Items, rec)
	case *ConjunctionCopies:
		return matchAll(node.Items, rec)
	case *Disjunction:
		for _, item := range node.Items {
			ok, err := Match(item, rec)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *SubForm:
		return matchSubForm(*node, rec)
	}
	return false, fmt.Errorf("cannot evaluate %s node in memory", n.Kind())
}

func matchAll(items []Node, rec Record) (bool, error) {
	for _, item := range items {
		ok, err := Match(item, rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchComparison(c Comparison, rec Record) (bool, error) {
	v, ok := rec[c.Param]
	if !ok {
		return false, nil
	}
	return c.Op.Apply(v, c.Value)
}

func matchRange(r RangeComparison, rec Record) (bool, error) {
	v, ok := rec[r.Param]
	if !ok {
		return false, nil
	}
	if !IsEmpty(r.From) {
		ok, err := LowerBoundOp.Apply(v, r.From)
		if err != nil || !ok {
			return false, err
		}
	}
	if !IsEmpty(r.To) {
		return UpperBoundOp.Apply(v, r.To)
	}
	return true, nil
}

func matchPattern(s StringPattern, rec Record) (bool, error) {
	v, ok := rec[s.Param].(string)
	if !ok {
		return false, nil
	}
	return wildcardMatch(strings.ToLower(s.Pattern), strings.ToLower(v)), nil
}

// wildcardMatch treats '*' and '%' as "any run of characters".
func wildcardMatch(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)
	pi, ri := 0, 0
	star, mark := -1, 0
	for ri < len(r) {
		switch {
		case pi < len(p) && (p[pi] == '*' || p[pi] == '%'):
			star, mark = pi, ri
			pi++
		case pi < len(p) && p[pi] == r[ri]:
			pi++
			ri++
		case star >= 0:
			pi = star + 1
			mark++
			ri = mark
		default:
			return false
		}
	}
	for pi < len(p) && (p[pi] == '*' || p[pi] == '%') {
		pi++
	}
	return pi == len(p)
}

func matchSubForm(s SubForm, rec Record) (bool, error) {
	switch nested := rec[s.Name].(type) {
	case Record:
		return Match(s.Content, nested)
	case []Record:
		if copies, ok := s.Content.(*ConjunctionCopies); ok {
			return assignDistinct(copies.Items, nested, make([]bool, len(nested)))
		}
		for _, r := range nested {
			ok, err := Match(s.Content, r)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// assignDistinct reports whether every item matches a different record.
func assignDistinct(items []Node, recs []Record, used []bool) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	for i, r := range recs {
		if used[i] {
			continue
		}
		ok, err := Match(items[0], r)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		used[i] = true
		ok, err = assignDistinct(items[1:], recs, used)
		used[i] = false
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
