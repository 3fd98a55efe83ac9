package compiler

import "fmt"

// UnresolvedTypeError reports a field whose type names no primitive, enum or
// message visible from its message. Only returned in strict mode.
type UnresolvedTypeError struct {
	MessageName string
	FieldName   string
	TypeName    string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("unresolved type %q for field %s.%s", e.TypeName, e.MessageName, e.FieldName)
}

// RecursionLimitError reports message expansion nested deeper than the
// configured maximum, which happens with cycles the guard does not break.
type RecursionLimitError struct {
	MessageName string
	Depth       int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("message %s exceeds maximum nesting depth %d", e.MessageName, e.Depth)
}
