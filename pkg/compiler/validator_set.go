package compiler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/rules"
)

// ErrUnknownMessage is returned when validating against a message name the set does not hold
var ErrUnknownMessage = errors.New("unknown message")

// ValidatorSet maps each top-level message name to its rule. It is
// immutable once built.
type ValidatorSet struct {
	validators map[string]*rules.Schema
	names      []string
	metrics    *observability.Metrics
}

func newValidatorSet(validators map[string]*rules.Schema, metrics *observability.Metrics) *ValidatorSet {
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return &ValidatorSet{validators: validators, names: names, metrics: metrics}
}

// Get returns the rule for a top-level message
func (s *ValidatorSet) Get(name string) (*rules.Schema, bool) {
	rule, ok := s.validators[name]
	return rule, ok
}

// Names returns the message names in sorted order
func (s *ValidatorSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of validators
func (s *ValidatorSet) Len() int {
	return len(s.names)
}

// Validate checks value against the named message and returns the
// normalized value. Violations are returned as *rules.ValidationErrors.
func (s *ValidatorSet) Validate(name string, value any) (any, error) {
	rule, ok := s.validators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, name)
	}
	out, err := rule.Validate(value)
	s.metrics.RecordValidation(name, err == nil)
	return out, err
}

// Describe returns the description of every rule keyed by message name
func (s *ValidatorSet) Describe() map[string]*rules.Description {
	out := make(map[string]*rules.Description, len(s.validators))
	for name, rule := range s.validators {
		out[name] = rule.Describe()
	}
	return out
}
