// Package compiler turns protobuf schemas into validation rules.
//
// # Overview
//
// Compile parses protobuf source and builds one rules.Schema per top-level
// message. Each message becomes an object rule keyed by field name; nested
// messages are expanded in place.
//
// # Type Resolution
//
// Field types resolve in this order, first match wins:
//
//  1. primitives (bool, float, double, the integer types, bytes, string)
//  2. map, which accepts any object
//  3. enums nested in the enclosing message, then top-level enums
//  4. messages nested in the enclosing message, then top-level messages
//  5. dotted names such as Outer.Inner or pkg.Message
//
// A nested declaration shadows a top-level one with the same name. Fields
// whose type resolves to nothing accept any value and are logged; with
// WithStrictTypes(true) they fail the compile with *UnresolvedTypeError.
//
// # Field Modifiers
//
// Modifiers wrap the base rule in a fixed order: default value (converted
// to the field type), repeated, required, then empty matchers.
//
// # Recursion
//
// A message field whose type is the message that is compiling the current
// one compiles to Any, so a self-referential message expands exactly one
// level. WithCycleGuard(CycleGuardAncestors) applies the check to the whole
// chain; WithMaxDepth bounds expansion for cycles the guard misses.
//
// # Usage Example
//
//	set, err := compiler.Compile(source,
//		compiler.WithEmptyMatchers(""),
//		compiler.WithEnumsAsIntegers(true),
//	)
//	if err != nil {
//		var perr *protobuf.SchemaParseError
//		if errors.As(err, &perr) {
//			log.Fatalf("%s:%d: %v", perr.Filename, perr.Line, perr.Err)
//		}
//		log.Fatal(err)
//	}
//
//	normalized, err := set.Validate("Order", map[string]any{"id": "o-1"})
//
// # Related Packages
//
//   - pkg/api/protobuf: Schema parsing
//   - pkg/rules: Rule vocabulary and evaluation
//   - pkg/cache: Caches compiled sets by source hash
package compiler
