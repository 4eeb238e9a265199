package rules

import (
	"strings"

	"homeauto/internal/models"
)

// handler compares one observed value against one expected value
type handler func(actual, expected models.Value) bool

type opKey struct {
	valueType models.ValueType
	operator  string
}

// handlers is the closed comparison table. Unsupported pairs are simply
// absent, so evaluation of them yields false rather than an error.
var handlers = map[opKey]handler{
	{models.ValueNumber, models.OpGT}:  func(a, e models.Value) bool { return a.Number > e.Number },
	{models.ValueNumber, models.OpGTE}: func(a, e models.Value) bool { return a.Number >= e.Number },
	{models.ValueNumber, models.OpLT}:  func(a, e models.Value) bool { return a.Number < e.Number },
	{models.ValueNumber, models.OpLTE}: func(a, e models.Value) bool { return a.Number <= e.Number },
	{models.ValueNumber, models.OpEQ}:  func(a, e models.Value) bool { return a.Number == e.Number },
	{models.ValueNumber, models.OpNEQ}: func(a, e models.Value) bool { return a.Number != e.Number },

	{models.ValueBoolean, models.OpEQ}:  func(a, e models.Value) bool { return a.Bool == e.Bool },
	{models.ValueBoolean, models.OpNEQ}: func(a, e models.Value) bool { return a.Bool != e.Bool },

	{models.ValueString, models.OpEQ}:       func(a, e models.Value) bool { return a.Str == e.Str },
	{models.ValueString, models.OpNEQ}:      func(a, e models.Value) bool { return a.Str != e.Str },
	{models.ValueString, models.OpContains}: func(a, e models.Value) bool { return strings.Contains(a.Str, e.Str) },
}

// Compare applies the operator handler for (valueType, operator) to one
// observed and one expected value. The caller guarantees actual matches
// valueType; no coercion happens here.
func Compare(valueType models.ValueType, operator string, actual, expected models.Value) bool {
	h, ok := handlers[opKey{valueType, operator}]
	if !ok {
		return false
	}
	return h(actual, expected)
}

// EvaluateCondition tests a rule condition against the named field of a
// reading snapshot. A missing field means no match, not an error.
func EvaluateCondition(cond models.Condition, fields map[string]models.Value) bool {
	actual, ok := fields[cond.Field]
	if !ok {
		return false
	}
	if actual.Type != cond.ValueType {
		return false
	}
	return Compare(cond.ValueType, cond.Operator, actual, cond.Expected)
}
