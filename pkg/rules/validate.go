package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Validate checks value against the schema. It returns the normalized value
// (defaults filled in, numeric and boolean strings converted, emptied keys
// removed) or a *ValidationErrors listing every violation.
func (s *Schema) Validate(value any) (any, error) {
	errs := &ValidationErrors{}
	out, _ := s.eval("", value, true, errs)
	if len(errs.Errors) > 0 {
		return nil, errs
	}
	return out, nil
}

// eval validates v at path. present is false when the value is missing from
// its parent object. It returns the normalized value and whether it is
// present after empty matching and defaults.
func (s *Schema) eval(path string, v any, present bool, errs *ValidationErrors) (any, bool) {
	if present && s.matchesEmpty(v) {
		present = false
		v = nil
	}

	if !present {
		if s.required {
			errs.add(path, CodeRequired, nil, "is required")
			return nil, false
		}
		if s.hasDef {
			return s.def, true
		}
		return nil, false
	}

	var (
		out any
		ok  bool
	)
	switch s.kind {
	case KindAny:
		out, ok = v, true
	case KindBoolean:
		out, ok = s.checkBoolean(path, v, errs)
	case KindNumber:
		out, ok = s.checkNumber(path, v, errs)
	case KindString:
		out, ok = s.checkString(path, v, errs)
	case KindBinary:
		out, ok = s.checkBinary(path, v, errs)
	case KindObject:
		out, ok = s.checkObject(path, v, errs)
	case KindArray:
		out, ok = s.checkArray(path, v, errs)
	}
	if !ok {
		return v, true
	}

	if len(s.allowed) > 0 && !containsValue(s.allowed, out) {
		errs.add(path, CodeOnly, v, "must be one of %v", s.allowed)
	}
	return out, true
}

func (s *Schema) matchesEmpty(v any) bool {
	for _, m := range s.empties {
		switch matcher := m.(type) {
		case *regexp.Regexp:
			if str, ok := v.(string); ok && matcher.MatchString(str) {
				return true
			}
		case *Schema:
			if _, err := matcher.Validate(v); err == nil {
				return true
			}
		default:
			if valuesEqual(matcher, v) {
				return true
			}
		}
	}
	return false
}

func (s *Schema) checkBoolean(path string, v any, errs *ValidationErrors) (any, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch {
		case strings.EqualFold(b, "true"):
			return true, true
		case strings.EqualFold(b, "false"):
			return false, true
		}
	}
	errs.add(path, CodeBooleanBase, v, "must be a boolean")
	return nil, false
}

func (s *Schema) checkNumber(path string, v any, errs *ValidationErrors) (any, bool) {
	n, ok := toNumber(v)
	if !ok {
		errs.add(path, CodeNumberBase, v, "must be a number")
		return nil, false
	}

	if s.integer {
		if f, isFloat := n.(float64); isFloat {
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				errs.add(path, CodeNumberInteger, v, "must be an integer")
				return nil, false
			}
			n = int64(f)
		}
	} else {
		n = asFloat(n)
	}

	if s.min != nil && asFloat(n) < *s.min {
		errs.add(path, CodeNumberMin, v, "must be greater than or equal to %v", *s.min)
		return nil, false
	}
	return n, true
}

func (s *Schema) checkString(path string, v any, errs *ValidationErrors) (any, bool) {
	str, ok := v.(string)
	if !ok {
		errs.add(path, CodeStringBase, v, "must be a string")
		return nil, false
	}
	if str == "" {
		errs.add(path, CodeStringEmpty, v, "is not allowed to be empty")
		return nil, false
	}
	return str, true
}

func (s *Schema) checkBinary(path string, v any, errs *ValidationErrors) (any, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	errs.add(path, CodeBinaryBase, v, "must be a buffer or a string")
	return nil, false
}

func (s *Schema) checkObject(path string, v any, errs *ValidationErrors) (any, bool) {
	m, ok := toMap(v)
	if !ok {
		errs.add(path, CodeObjectBase, v, "must be an object")
		return nil, false
	}
	if !s.hasKeys {
		return m, true
	}

	out := make(map[string]any, len(m))
	for _, k := range s.keys {
		raw, present := m[k.Name]
		schema := k.Schema
		if schema == nil {
			schema = Any()
		}
		if val, ok := schema.eval(joinPath(path, k.Name), raw, present, errs); ok {
			out[k.Name] = val
		}
	}

	unknown := make([]string, 0)
	for name := range m {
		if s.keyIndex(name) < 0 {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs.add(joinPath(path, name), CodeObjectUnknown, m[name], "is not allowed")
	}

	for _, group := range s.oxor {
		present := make([]string, 0, len(group))
		for _, name := range group {
			if _, ok := out[name]; ok {
				present = append(present, name)
			}
		}
		if len(present) > 1 {
			errs.add(path, CodeObjectOxor, nil,
				"contains a conflict between optional exclusive peers [%s]", strings.Join(present, ", "))
		}
	}

	return out, true
}

func (s *Schema) checkArray(path string, v any, errs *ValidationErrors) (any, bool) {
	if v == nil {
		errs.add(path, CodeArrayBase, v, "must be an array")
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		errs.add(path, CodeArrayBase, v, "must be an array")
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if s.items == nil {
			out[i] = item
			continue
		}
		val, _ := s.items.eval(fmt.Sprintf("%s[%d]", path, i), item, true, errs)
		out[i] = val
	}
	return out, true
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// toMap converts decoded objects into map[string]any. YAML decoders may
// produce map[any]any; those are accepted when every key is a string.
func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	}
	return nil, false
}

// toNumber normalizes a numeric value into int64, uint64 (only above
// MaxInt64) or float64.
func toNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return fromUint(uint64(n)), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return fromUint(n), true
	case float32:
		return finite(float64(n))
	case float64:
		return finite(n)
	case json.Number:
		return parseNumber(n.String())
	case string:
		return parseNumber(n)
	}
	return nil, false
}

func parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return fromUint(u), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return finite(f)
}

func fromUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func finite(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func asFloat(n any) float64 {
	switch v := n.(type) {
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	}
	return math.NaN()
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if valuesEqual(candidate, v) {
			return true
		}
	}
	return false
}

// valuesEqual compares numbers by value regardless of their Go type and
// everything else structurally.
func valuesEqual(a, b any) bool {
	if na, ok := numericOnly(a); ok {
		if nb, ok := numericOnly(b); ok {
			return asFloat(na) == asFloat(nb)
		}
		return false
	}
	if ba, ok := a.([]byte); ok {
		if bb, ok := b.([]byte); ok {
			return bytes.Equal(ba, bb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// numericOnly is toNumber without string parsing, so "1" never equals 1.
// json.Number is a decoded JSON number and compares as one.
func numericOnly(v any) (any, bool) {
	if _, ok := v.(string); ok {
		return nil, false
	}
	return toNumber(v)
}
