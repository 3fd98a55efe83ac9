package rules

import (
	"slices"
)

// Kind identifies the base type a Schema checks
type Kind int

const (
	KindAny Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindBinary
	KindObject
	KindArray
)

func (k Kind) String() string {
	return []string{"any", "boolean", "number", "string", "binary", "object", "array"}[k]
}

// Key binds an object key to the schema its value must satisfy
type Key struct {
	Name   string
	Schema *Schema
}

// K is shorthand for building a Key
func K(name string, schema *Schema) Key {
	return Key{Name: name, Schema: schema}
}

// Schema is an immutable validation rule. Every modifier returns a new
// Schema and leaves the receiver untouched, so schemas can be shared freely
// between goroutines and between parent rules.
type Schema struct {
	kind Kind

	integer bool
	min     *float64
	allowed []any

	keys    []Key
	hasKeys bool
	oxor    [][]string

	items *Schema

	def      any
	hasDef   bool
	required bool
	empties  []any
}

// Any accepts every value, including nil
func Any() *Schema { return &Schema{kind: KindAny} }

// Boolean accepts bool values and the strings "true" and "false"
func Boolean() *Schema { return &Schema{kind: KindBoolean} }

// Number accepts Go numbers, json.Number and numeric strings
func Number() *Schema { return &Schema{kind: KindNumber} }

// String accepts non-empty strings
func String() *Schema { return &Schema{kind: KindString} }

// Binary accepts byte slices and strings
func Binary() *Schema { return &Schema{kind: KindBinary} }

// Object accepts maps keyed by strings. Without Keys any content is allowed.
func Object() *Schema { return &Schema{kind: KindObject} }

// Array accepts slices and arrays
func Array() *Schema { return &Schema{kind: KindArray} }

func (s *Schema) clone() *Schema {
	c := *s
	return &c
}

// Integer restricts a number schema to integral values
func (s *Schema) Integer() *Schema {
	c := s.clone()
	c.integer = true
	return c
}

// Min sets an inclusive lower bound on a number schema
func (s *Schema) Min(limit float64) *Schema {
	c := s.clone()
	c.min = &limit
	return c
}

// Valid restricts the accepted values to the given set
func (s *Schema) Valid(values ...any) *Schema {
	c := s.clone()
	c.allowed = append(slices.Clone(s.allowed), values...)
	return c
}

// Keys declares the keys of an object schema. Keys not declared are
// rejected. Declaring the same key twice replaces the earlier rule.
func (s *Schema) Keys(keys ...Key) *Schema {
	c := s.clone()
	c.hasKeys = true
	c.keys = slices.Clone(s.keys)
	for _, k := range keys {
		if i := c.keyIndex(k.Name); i >= 0 {
			c.keys[i] = k
			continue
		}
		c.keys = append(c.keys, k)
	}
	return c
}

// Oxor adds a group of object keys of which at most one may be present
func (s *Schema) Oxor(names ...string) *Schema {
	c := s.clone()
	c.oxor = append(slices.Clone(s.oxor), slices.Clone(names))
	return c
}

// Items sets the schema every array element must satisfy
func (s *Schema) Items(item *Schema) *Schema {
	c := s.clone()
	c.items = item
	return c
}

// Default sets the value used when the value is absent
func (s *Schema) Default(value any) *Schema {
	c := s.clone()
	c.def = value
	c.hasDef = true
	return c
}

// Required makes absence an error
func (s *Schema) Required() *Schema {
	c := s.clone()
	c.required = true
	return c
}

// Empty declares values that count as absent. A matcher is either a literal
// value, a *regexp.Regexp matched against strings or a *Schema the value
// must satisfy.
func (s *Schema) Empty(matchers ...any) *Schema {
	c := s.clone()
	c.empties = append(slices.Clone(s.empties), matchers...)
	return c
}

// Kind returns the base type of the schema
func (s *Schema) Kind() Kind { return s.kind }

// IsInteger reports whether the schema only accepts integral numbers
func (s *Schema) IsInteger() bool { return s.integer }

// MinValue returns the lower bound of a number schema
func (s *Schema) MinValue() (float64, bool) {
	if s.min == nil {
		return 0, false
	}
	return *s.min, true
}

// AllowedValues returns the values set with Valid
func (s *Schema) AllowedValues() []any { return slices.Clone(s.allowed) }

// IsRequired reports whether absence is an error
func (s *Schema) IsRequired() bool { return s.required }

// DefaultValue returns the default and whether one is set
func (s *Schema) DefaultValue() (any, bool) { return s.def, s.hasDef }

// EmptyMatchers returns the matchers set with Empty
func (s *Schema) EmptyMatchers() []any { return slices.Clone(s.empties) }

// ItemSchema returns the element schema of an array schema
func (s *Schema) ItemSchema() *Schema { return s.items }

// HasKeys reports whether the object schema declares its keys
func (s *Schema) HasKeys() bool { return s.hasKeys }

// KeyNames returns the declared object keys in declaration order
func (s *Schema) KeyNames() []string {
	names := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		names = append(names, k.Name)
	}
	return names
}

// Key returns the schema declared for an object key
func (s *Schema) Key(name string) (*Schema, bool) {
	if i := s.keyIndex(name); i >= 0 {
		return s.keys[i].Schema, true
	}
	return nil, false
}

// OxorGroups returns the mutually exclusive key groups
func (s *Schema) OxorGroups() [][]string {
	groups := make([][]string, 0, len(s.oxor))
	for _, g := range s.oxor {
		groups = append(groups, slices.Clone(g))
	}
	return groups
}

func (s *Schema) keyIndex(name string) int {
	for i, k := range s.keys {
		if k.Name == name {
			return i
		}
	}
	return -1
}
