// Package rules provides composable validation rules for decoded data.
//
// # Overview
//
// A Schema checks a value produced by a JSON or YAML decoder (maps, slices,
// strings, numbers, booleans, byte slices). Schemas are immutable: each
// modifier returns a copy, so a rule can be embedded in several parents.
//
// # Vocabulary
//
//	rules.Any()                          // anything, including nil
//	rules.Boolean()                      // bool, "true", "false"
//	rules.Number().Integer().Min(0)      // numbers and numeric strings
//	rules.String()                       // non-empty strings
//	rules.Binary()                       // []byte or string
//	rules.Object().Keys(rules.K("id", rules.String().Required()))
//	rules.Array().Items(rules.String())
//
// Modifiers shared by every kind: Valid, Default, Required, Empty.
// Objects additionally support Oxor, allowing at most one key of a group.
//
// # Usage Example
//
//	user := rules.Object().Keys(
//		rules.K("name", rules.String().Required()),
//		rules.K("age", rules.Number().Integer().Min(0).Default(int64(18))),
//	)
//
//	normalized, err := user.Validate(map[string]any{"name": "ada"})
//	if verrs, ok := rules.AsValidationErrors(err); ok {
//		for _, v := range verrs.Errors {
//			fmt.Printf("[%s] %s\n", v.Code, v.Error())
//		}
//	}
//	// normalized: map[age:18 name:ada]
//
// # Related Packages
//
//   - pkg/compiler: Builds schemas from protobuf messages
package rules
