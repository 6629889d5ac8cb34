// Package rule parses and evaluates the approval rule expressions found in
// the vault policy document, e.g. `amount > 100` or `action == "invoice.create"`.
package rule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// Rule is a single parsed comparison against a task payload field.
type Rule struct {
	Field    string
	Operator string
	Value    interface{} // float64 or string
}

// Parse parses an expression in the format: field operator literal
func Parse(input []byte) (*Rule, error) {
	cursor := parsly.NewCursor("", input, 0)
	rule := &Rule{}

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	rule.Field = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, operatorToken)
	if matched.Code != operatorToken.Code {
		return nil, cursor.NewError(operatorToken)
	}
	rule.Operator = matched.Text(cursor)

	matched = cursor.MatchAfterOptional(whitespaceToken, numberToken, quotedTextToken, bareTextToken)
	switch matched.Code {
	case numberToken.Code:
		value, err := strconv.ParseFloat(matched.Text(cursor), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric literal in rule %q: %w", input, err)
		}
		rule.Value = value
	case quotedTextToken.Code:
		text := matched.Text(cursor)
		rule.Value = text[1 : len(text)-1]
	case bareTextToken.Code:
		rule.Value = matched.Text(cursor)
	default:
		return nil, cursor.NewError(numberToken)
	}
	return rule, nil
}

// Matches evaluates the rule against a task payload. A missing field never
// matches; a type mismatch never matches.
func (r *Rule) Matches(payload map[string]interface{}) bool {
	if r == nil {
		return false
	}
	value, ok := lookup(payload, r.Field)
	if !ok {
		return false
	}
	switch expected := r.Value.(type) {
	case float64:
		actual, ok := asFloat(value)
		if !ok {
			return false
		}
		return compareFloat(actual, expected, r.Operator)
	case string:
		actual, ok := value.(string)
		if !ok {
			return false
		}
		return compareText(actual, expected, r.Operator)
	}
	return false
}

// lookup navigates a dotted field path through nested maps.
func lookup(payload map[string]interface{}, field string) (interface{}, bool) {
	parts := strings.Split(field, ".")
	var current interface{} = payload
	for _, part := range parts {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = node[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

func asFloat(value interface{}) (float64, bool) {
	switch actual := value.(type) {
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case string:
		parsed, err := strconv.ParseFloat(actual, 64)
		return parsed, err == nil
	}
	return 0, false
}

func compareFloat(actual, expected float64, operator string) bool {
	switch operator {
	case "==":
		return actual == expected
	case "!=":
		return actual != expected
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected
	}
	return false
}

func compareText(actual, expected, operator string) bool {
	switch operator {
	case "==":
		return strings.EqualFold(actual, expected)
	case "!=":
		return !strings.EqualFold(actual, expected)
	}
	return false
}
