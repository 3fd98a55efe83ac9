// Package protobuf loads protobuf schema source into a schema document.
//
// # Overview
//
// Parsing is delegated to protocompile. The resulting descriptor is left
// unlinked, so field type names are reported exactly as they were written
// and resolving them is the caller's job.
//
// # Usage Example
//
//	doc, err := protobuf.ParseString(source)
//	if err != nil {
//		var parseErr *protobuf.SchemaParseError
//		if errors.As(err, &parseErr) {
//			fmt.Printf("%s:%d: %v\n", parseErr.Filename, parseErr.Line, parseErr.Err)
//		}
//		return err
//	}
//
//	for _, msg := range doc.Messages {
//		fmt.Println(msg.Name, len(msg.Fields))
//	}
//
// # Document Shape
//
//   - map<K,V> fields are reported with Type "map"; their synthetic entry
//     messages are hidden
//   - oneof membership is reported on each field (FieldNode.OneOf)
//   - the default pseudo-option is kept as raw literal text (FieldNode.Default)
//
// # Related Packages
//
//   - pkg/compiler: Compiles documents into validation rules
package protobuf
