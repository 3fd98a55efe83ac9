package protobuf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bufbuild/protocompile/parser"
	"github.com/bufbuild/protocompile/reporter"
	"google.golang.org/protobuf/types/descriptorpb"
)

// DefaultFilename is used when a schema is parsed from a string or reader
const DefaultFilename = "input.proto"

// ParseWithDescriptor parses protobuf source into a schema document.
//
// The parser works in two stages:
//  1. Parse the content with protocompile into an unlinked FileDescriptorProto
//  2. Convert the descriptor into the document model
//
// The descriptor is deliberately left unlinked: type references keep the
// name they were written with and are resolved later by scope lookup.
func ParseWithDescriptor(filename, content string) (*RootNode, error) {
	desc, err := parseToDescriptor(filename, content)
	if err != nil {
		return nil, err
	}

	root := convertDescriptorToAST(desc)
	root.Filename = filename
	return root, nil
}

// ParseSchema is an alias for ParseWithDescriptor
func ParseSchema(filename, content string) (*RootNode, error) {
	return ParseWithDescriptor(filename, content)
}

// ParseString parses a schema held in a string
func ParseString(content string) (*RootNode, error) {
	return ParseWithDescriptor(DefaultFilename, content)
}

// ParseReader parses a schema read from r
func ParseReader(r io.Reader) (*RootNode, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return ParseWithDescriptor(DefaultFilename, string(content))
}

// ParseFile parses the schema file at path
func ParseFile(path string) (*RootNode, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return ParseWithDescriptor(path, string(content))
}

// parseToDescriptor uses protocompile to parse proto content into a FileDescriptorProto
func parseToDescriptor(filename, content string) (*descriptorpb.FileDescriptorProto, error) {
	handler := reporter.NewHandler(nil)
	file, err := parser.Parse(filename, strings.NewReader(content), handler)
	if err != nil {
		return nil, newSchemaParseError(filename, err)
	}

	result, err := parser.ResultFromAST(file, false, handler)
	if err != nil {
		return nil, newSchemaParseError(filename, err)
	}

	return result.FileDescriptorProto(), nil
}

// convertDescriptorToAST converts a FileDescriptorProto to the document model
func convertDescriptorToAST(desc *descriptorpb.FileDescriptorProto) *RootNode {
	root := &RootNode{
		Messages: make([]*MessageNode, 0, len(desc.GetMessageType())),
		Enums:    make([]*EnumNode, 0, len(desc.GetEnumType())),
	}

	if desc.Syntax != nil {
		root.Syntax = &SyntaxNode{Value: desc.GetSyntax()}
	}
	if desc.Package != nil {
		root.Package = &PackageNode{Name: desc.GetPackage()}
	}

	for _, msgDesc := range desc.GetMessageType() {
		root.Messages = append(root.Messages, convertMessage(msgDesc))
	}
	for _, enumDesc := range desc.GetEnumType() {
		root.Enums = append(root.Enums, convertEnum(enumDesc))
	}

	return root
}

// convertMessage converts a DescriptorProto (message descriptor) to MessageNode
func convertMessage(desc *descriptorpb.DescriptorProto) *MessageNode {
	msg := &MessageNode{
		Name:   desc.GetName(),
		Fields: make([]*FieldNode, 0, len(desc.GetField())),
		Nested: make([]*MessageNode, 0),
		Enums:  make([]*EnumNode, 0, len(desc.GetEnumType())),
		OneOfs: make([]*OneOfNode, 0),
	}

	// map<K,V> fields are represented by synthetic nested entry messages
	mapEntries := make(map[string]*descriptorpb.DescriptorProto)
	for _, nestedDesc := range desc.GetNestedType() {
		if nestedDesc.GetOptions().GetMapEntry() {
			mapEntries[nestedDesc.GetName()] = nestedDesc
			continue
		}
		msg.Nested = append(msg.Nested, convertMessage(nestedDesc))
	}

	oneofs := make(map[int32]*OneOfNode)
	for i, oneofDesc := range desc.GetOneofDecl() {
		oneofs[int32(i)] = &OneOfNode{Name: oneofDesc.GetName()}
	}

	for _, fieldDesc := range desc.GetField() {
		field := convertField(fieldDesc, mapEntries)
		if fieldDesc.OneofIndex != nil && !fieldDesc.GetProto3Optional() {
			if oneof, ok := oneofs[fieldDesc.GetOneofIndex()]; ok {
				field.OneOf = oneof.Name
				oneof.Fields = append(oneof.Fields, field)
			}
		}
		msg.Fields = append(msg.Fields, field)
	}

	for i := range desc.GetOneofDecl() {
		if oneof := oneofs[int32(i)]; len(oneof.Fields) > 0 {
			msg.OneOfs = append(msg.OneOfs, oneof)
		}
	}

	for _, enumDesc := range desc.GetEnumType() {
		msg.Enums = append(msg.Enums, convertEnum(enumDesc))
	}

	return msg
}

// convertField converts a FieldDescriptorProto to FieldNode
func convertField(desc *descriptorpb.FieldDescriptorProto, mapEntries map[string]*descriptorpb.DescriptorProto) *FieldNode {
	field := &FieldNode{
		Name:    desc.GetName(),
		Type:    getFieldTypeName(desc),
		Number:  int(desc.GetNumber()),
		Options: make([]*OptionNode, 0),
	}

	switch desc.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		field.Repeated = true
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		field.Required = true
	case descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL:
		field.Optional = true
	}

	if entry, ok := mapEntries[lastSegment(field.Type)]; ok && field.Repeated {
		field.Type = "map"
		field.Repeated = false
		for _, entryField := range entry.GetField() {
			switch entryField.GetName() {
			case "key":
				field.MapKeyType = getFieldTypeName(entryField)
			case "value":
				field.MapValueType = getFieldTypeName(entryField)
			}
		}
	}

	if desc.DefaultValue != nil {
		field.Default = &OptionNode{Name: "default", Value: desc.GetDefaultValue(), Kind: OptionValueString}
	}

	for _, opt := range desc.GetOptions().GetUninterpretedOption() {
		node := convertUninterpretedOption(opt)
		if node.Name == "default" {
			if field.Default == nil {
				field.Default = node
			}
			continue
		}
		field.Options = append(field.Options, node)
	}

	return field
}

// convertUninterpretedOption converts an option the parser could not
// interpret without linking into an OptionNode
func convertUninterpretedOption(opt *descriptorpb.UninterpretedOption) *OptionNode {
	parts := make([]string, 0, len(opt.GetName()))
	for _, part := range opt.GetName() {
		if part.GetIsExtension() {
			parts = append(parts, "("+part.GetNamePart()+")")
		} else {
			parts = append(parts, part.GetNamePart())
		}
	}

	node := &OptionNode{Name: strings.Join(parts, ".")}
	switch {
	case opt.IdentifierValue != nil:
		node.Value = opt.GetIdentifierValue()
		node.Kind = OptionValueIdentifier
	case opt.PositiveIntValue != nil:
		node.Value = strconv.FormatUint(opt.GetPositiveIntValue(), 10)
		node.Kind = OptionValueInt
	case opt.NegativeIntValue != nil:
		node.Value = strconv.FormatInt(opt.GetNegativeIntValue(), 10)
		node.Kind = OptionValueInt
	case opt.DoubleValue != nil:
		node.Value = strconv.FormatFloat(opt.GetDoubleValue(), 'g', -1, 64)
		node.Kind = OptionValueFloat
	case opt.StringValue != nil:
		node.Value = string(opt.GetStringValue())
		node.Kind = OptionValueString
	case opt.AggregateValue != nil:
		node.Value = opt.GetAggregateValue()
		node.Kind = OptionValueAggregate
	}
	return node
}

// getFieldTypeName returns the type name for a field
func getFieldTypeName(desc *descriptorpb.FieldDescriptorProto) string {
	// If it's a message, enum or group type, use the type name as written
	if desc.TypeName != nil {
		return strings.TrimPrefix(desc.GetTypeName(), ".")
	}

	switch desc.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return "double"
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return "float"
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		return "int64"
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64:
		return "uint64"
	case descriptorpb.FieldDescriptorProto_TYPE_INT32:
		return "int32"
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return "fixed64"
	case descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return "fixed32"
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return "bool"
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return "string"
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return "bytes"
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32:
		return "uint32"
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return "sfixed32"
	case descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return "sfixed64"
	case descriptorpb.FieldDescriptorProto_TYPE_SINT32:
		return "sint32"
	case descriptorpb.FieldDescriptorProto_TYPE_SINT64:
		return "sint64"
	default:
		return "unknown"
	}
}

// convertEnum converts an EnumDescriptorProto to EnumNode
func convertEnum(desc *descriptorpb.EnumDescriptorProto) *EnumNode {
	enum := &EnumNode{
		Name:   desc.GetName(),
		Values: make([]*EnumValueNode, 0, len(desc.GetValue())),
	}

	for _, valueDesc := range desc.GetValue() {
		enum.Values = append(enum.Values, &EnumValueNode{
			Name:   valueDesc.GetName(),
			Number: int(valueDesc.GetNumber()),
		})
	}

	return enum
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// SchemaParseError reports malformed schema source
type SchemaParseError struct {
	Filename string
	Line     int
	Column   int
	Err      error
}

func newSchemaParseError(filename string, err error) *SchemaParseError {
	parseErr := &SchemaParseError{Filename: filename, Err: err}

	var posErr reporter.ErrorWithPos
	if errors.As(err, &posErr) {
		pos := posErr.GetPosition()
		parseErr.Line = pos.Line
		parseErr.Column = pos.Col
		if pos.Filename != "" {
			parseErr.Filename = pos.Filename
		}
	}
	return parseErr
}

func (e *SchemaParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema parse error at %s:%d:%d: %v", e.Filename, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("schema parse error in %s: %v", e.Filename, e.Err)
}

// Cause returns the underlying error without its source position
func (e *SchemaParseError) Cause() error {
	var posErr reporter.ErrorWithPos
	if errors.As(e.Err, &posErr) {
		return posErr.Unwrap()
	}
	return e.Err
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}
