package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadCondition is returned for a condition ParseCondition cannot read.
var ErrBadCondition = errors.New("bad condition")

// Longer operators first so ">=" is not read as ">".
var operators = []string{">=", "<=", "!=", "=", ">", "<", "~"}

// ParseCondition reads "field op value", e.g. "min_sell<500", "rarity=Exotic"
// or "name~snowflake". Operators: = != < <= > >= and ~ (case-insensitive
// contains). Numeric fields compare numerically. A row lacking the field never
// matches.
func ParseCondition(expr string) (Predicate, error) {
	name, op, value, ok := splitCondition(expr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadCondition, expr)
	}
	get, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	num, numErr := strconv.ParseFloat(value, 64)

	return func(r Row) bool {
		v := get(r)
		if v == nil {
			return false
		}
		if f, isNum := toFloat(v); isNum && op != "~" {
			if numErr != nil {
				return false
			}
			return compare(op, cmpFloat(f, num))
		}

		s := fmt.Sprint(v)
		if op == "~" {
			return strings.Contains(strings.ToLower(s), strings.ToLower(value))
		}
		return compare(op, strings.Compare(s, value))
	}, nil
}

func splitCondition(expr string) (name, op, value string, ok bool) {
	for i := 0; i < len(expr); i++ {
		for _, candidate := range operators {
			if strings.HasPrefix(expr[i:], candidate) {
				name = strings.TrimSpace(expr[:i])
				value = strings.TrimSpace(expr[i+len(candidate):])
				return name, candidate, value, name != ""
			}
		}
	}
	return "", "", "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(op string, c int) bool {
	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}
