package rules

import (
	"fmt"
	"regexp"
)

// Description is a serializable view of a Schema
type Description struct {
	Type     string                  `json:"type" yaml:"type"`
	Integer  bool                    `json:"integer,omitempty" yaml:"integer,omitempty"`
	Min      *float64                `json:"min,omitempty" yaml:"min,omitempty"`
	Valid    []any                   `json:"valid,omitempty" yaml:"valid,omitempty"`
	Default  any                     `json:"default,omitempty" yaml:"default,omitempty"`
	Required bool                    `json:"required,omitempty" yaml:"required,omitempty"`
	Empty    []string                `json:"empty,omitempty" yaml:"empty,omitempty"`
	Keys     map[string]*Description `json:"keys,omitempty" yaml:"keys,omitempty"`
	Items    *Description            `json:"items,omitempty" yaml:"items,omitempty"`
	Oxor     [][]string              `json:"oxor,omitempty" yaml:"oxor,omitempty"`
}

// Describe returns a Description of the schema and everything nested in it
func (s *Schema) Describe() *Description {
	d := &Description{
		Type:     s.kind.String(),
		Integer:  s.integer,
		Min:      s.min,
		Required: s.required,
		Oxor:     s.OxorGroups(),
	}
	if len(s.oxor) == 0 {
		d.Oxor = nil
	}
	if len(s.allowed) > 0 {
		d.Valid = s.AllowedValues()
	}
	if s.hasDef {
		d.Default = s.def
	}
	for _, m := range s.empties {
		d.Empty = append(d.Empty, describeMatcher(m))
	}
	if s.hasKeys {
		d.Keys = make(map[string]*Description, len(s.keys))
		for _, k := range s.keys {
			if k.Schema == nil {
				d.Keys[k.Name] = Any().Describe()
				continue
			}
			d.Keys[k.Name] = k.Schema.Describe()
		}
	}
	if s.items != nil {
		d.Items = s.items.Describe()
	}
	return d
}

func describeMatcher(m any) string {
	switch matcher := m.(type) {
	case *regexp.Regexp:
		return "/" + matcher.String() + "/"
	case *Schema:
		return "<" + matcher.kind.String() + ">"
	case string:
		return fmt.Sprintf("%q", matcher)
	default:
		return fmt.Sprintf("%v", matcher)
	}
}
