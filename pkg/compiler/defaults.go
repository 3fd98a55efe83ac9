package compiler

import (
	"math"
	"strconv"
	"strings"
)

// coerceDefault converts the literal text of a `default` option to the
// value type of the field's rule. ok is false when the literal cannot be
// represented, in which case the default is dropped.
func coerceDefault(rt resolvedType, literal string, enumsAsIntegers bool) (value any, ok bool) {
	switch rt.kind {
	case kindBool:
		if b, err := strconv.ParseBool(literal); err == nil {
			return b, true
		}
		return literal != "", true
	case kindFloat:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil || math.IsNaN(f) {
			return nil, false
		}
		return f, true
	case kindUnsigned, kindSigned:
		return parseIntegerDefault(literal)
	case kindBytes:
		return []byte(literal), true
	case kindEnum:
		if !enumsAsIntegers {
			return literal, true
		}
		if v, found := rt.enum.Value(literal); found {
			return int64(v.Number), true
		}
		return parseIntegerDefault(literal)
	default:
		return literal, true
	}
}

// parseIntegerDefault accepts decimal, hex and octal literals. Values with a
// fractional part are truncated toward zero.
func parseIntegerDefault(literal string) (any, bool) {
	literal = strings.TrimSpace(literal)
	if i, err := strconv.ParseInt(literal, 0, 64); err == nil {
		return i, true
	}
	if u, err := strconv.ParseUint(literal, 0, 64); err == nil {
		return u, true
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return nil, false
	}
	return int64(t), true
}
