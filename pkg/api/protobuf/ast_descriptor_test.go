package protobuf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithDescriptor_Basic(t *testing.T) {
	content := `syntax = "proto3";

package test;

message User {
  string name = 1;
  int32 age = 2;
  repeated string tags = 3;
  bytes avatar = 4;
}
`

	ast, err := ParseWithDescriptor("test.proto", content)
	require.NoError(t, err)
	require.NotNil(t, ast)

	assert.Equal(t, "test.proto", ast.Filename)

	// Verify syntax
	require.NotNil(t, ast.Syntax)
	assert.Equal(t, "proto3", ast.Syntax.Value)

	// Verify package
	require.NotNil(t, ast.Package)
	assert.Equal(t, "test", ast.Package.Name)
	assert.Equal(t, "test", ast.PackageName())

	// Verify message
	require.Len(t, ast.Messages, 1)
	msg := ast.Messages[0]
	assert.Equal(t, "User", msg.Name)

	// Verify fields
	require.Len(t, msg.Fields, 4)
	assert.Equal(t, "name", msg.Fields[0].Name)
	assert.Equal(t, "string", msg.Fields[0].Type)
	assert.Equal(t, 1, msg.Fields[0].Number)

	assert.Equal(t, "age", msg.Fields[1].Name)
	assert.Equal(t, "int32", msg.Fields[1].Type)
	assert.Equal(t, 2, msg.Fields[1].Number)

	assert.Equal(t, "tags", msg.Fields[2].Name)
	assert.True(t, msg.Fields[2].Repeated)

	assert.Equal(t, "bytes", msg.Fields[3].Type)
	assert.Empty(t, msg.Fields[3].OneOf)
	assert.Nil(t, msg.Fields[3].Default)
}

func TestParseWithDescriptor_ScalarTypes(t *testing.T) {
	content := `syntax = "proto3";

message Scalars {
  double d = 1;
  float f = 2;
  int64 i64 = 3;
  uint64 u64 = 4;
  int32 i32 = 5;
  fixed64 f64 = 6;
  fixed32 f32 = 7;
  bool b = 8;
  string s = 9;
  bytes by = 10;
  uint32 u32 = 11;
  sfixed32 sf32 = 12;
  sfixed64 sf64 = 13;
  sint32 si32 = 14;
  sint64 si64 = 15;
}
`

	ast, err := ParseString(content)
	require.NoError(t, err)
	require.Len(t, ast.Messages, 1)

	want := []string{
		"double", "float", "int64", "uint64", "int32", "fixed64", "fixed32", "bool",
		"string", "bytes", "uint32", "sfixed32", "sfixed64", "sint32", "sint64",
	}
	got := make([]string, 0, len(ast.Messages[0].Fields))
	for _, f := range ast.Messages[0].Fields {
		got = append(got, f.Type)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, DefaultFilename, ast.Filename)
}

func TestParseWithDescriptor_NamedTypes(t *testing.T) {
	content := `syntax = "proto3";

package shop;

enum Color {
  RED = 0;
  BLUE = 1;
}

message Order {
  enum Status {
    PENDING = 0;
    SHIPPED = 1;
  }
  message Line {
    string sku = 1;
  }

  Status status = 1;
  Color color = 2;
  repeated Line lines = 3;
  .shop.Customer customer = 4;
  Order.Line first_line = 5;
}

message Customer {
  string id = 1;
}
`

	ast, err := ParseString(content)
	require.NoError(t, err)
	require.Len(t, ast.Messages, 2)
	require.Len(t, ast.Enums, 1)

	color := ast.FindEnum("Color")
	require.NotNil(t, color)
	require.Len(t, color.Values, 2)
	assert.Equal(t, "RED", color.Values[0].Name)
	assert.Equal(t, 0, color.Values[0].Number)
	assert.Equal(t, "BLUE", color.Values[1].Name)
	assert.Equal(t, 1, color.Values[1].Number)

	blue, ok := color.Value("BLUE")
	require.True(t, ok)
	assert.Equal(t, 1, blue.Number)
	_, ok = color.Value("GREEN")
	assert.False(t, ok)

	order := ast.FindMessage("Order")
	require.NotNil(t, order)
	require.NotNil(t, order.FindEnum("Status"))
	require.NotNil(t, order.FindMessage("Line"))
	assert.Nil(t, order.FindMessage("Customer"))

	types := make(map[string]string)
	for _, f := range order.Fields {
		types[f.Name] = f.Type
	}
	assert.Equal(t, "Status", types["status"])
	assert.Equal(t, "Color", types["color"])
	assert.Equal(t, "Line", types["lines"])
	assert.Equal(t, "shop.Customer", types["customer"])
	assert.Equal(t, "Order.Line", types["first_line"])
}

func TestParseWithDescriptor_MapFields(t *testing.T) {
	content := `syntax = "proto3";

message Labels {
  map<string, int32> counts = 1;
  string name = 2;
}
`

	ast, err := ParseString(content)
	require.NoError(t, err)
	require.Len(t, ast.Messages, 1)

	msg := ast.Messages[0]
	// The synthetic entry message must not leak into the nested messages
	assert.Empty(t, msg.Nested)

	require.Len(t, msg.Fields, 2)
	counts := msg.Fields[0]
	assert.Equal(t, "counts", counts.Name)
	assert.Equal(t, "map", counts.Type)
	assert.False(t, counts.Repeated)
	assert.Equal(t, "string", counts.MapKeyType)
	assert.Equal(t, "int32", counts.MapValueType)
}

func TestParseWithDescriptor_Proto2Modifiers(t *testing.T) {
	content := `syntax = "proto2";

message Settings {
  required string id = 1;
  optional int32 retries = 2 [default = 5];
  optional bool verbose = 3 [default = true];
  optional string label = 4 [default = "none"];
  optional sint32 offset = 5 [default = -3];
  optional double ratio = 6 [default = 0.5];
  repeated uint32 ports = 7;
}
`

	ast, err := ParseString(content)
	require.NoError(t, err)
	require.Len(t, ast.Messages, 1)

	fields := make(map[string]*FieldNode)
	for _, f := range ast.Messages[0].Fields {
		fields[f.Name] = f
	}

	assert.True(t, fields["id"].Required)
	assert.False(t, fields["id"].HasDefault())

	require.True(t, fields["retries"].HasDefault())
	assert.Equal(t, "5", fields["retries"].Default.Value)
	assert.Equal(t, "true", fields["verbose"].Default.Value)
	assert.Equal(t, "none", fields["label"].Default.Value)
	assert.Equal(t, "-3", fields["offset"].Default.Value)
	assert.Equal(t, "0.5", fields["ratio"].Default.Value)

	assert.True(t, fields["ports"].Repeated)
	assert.False(t, fields["ports"].Required)
}

func TestParseWithDescriptor_ParseError(t *testing.T) {
	content := `syntax = "proto3";

message Broken {
  string name = 1
}
`

	ast, err := ParseWithDescriptor("broken.proto", content)
	require.Error(t, err)
	assert.Nil(t, ast)

	var parseErr *SchemaParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.proto", parseErr.Filename)
	assert.Greater(t, parseErr.Line, 0)
	assert.NotNil(t, parseErr.Unwrap())
	assert.True(t, strings.HasPrefix(err.Error(), "schema parse error"))
	assert.NotContains(t, parseErr.Cause().Error(), "broken.proto", "cause carries no position")
}

func TestParseReaderAndFile(t *testing.T) {
	content := `syntax = "proto3";
message Ping { string id = 1; }
`

	ast, err := ParseReader(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, ast.Messages, 1)
	assert.Equal(t, "Ping", ast.Messages[0].Name)

	dir := t.TempDir()
	path := filepath.Join(dir, "ping.proto")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ast, err = ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, ast.Filename)
	require.Len(t, ast.Messages, 1)

	_, err = ParseFile(filepath.Join(dir, "missing.proto"))
	require.Error(t, err)
	var parseErr *SchemaParseError
	assert.False(t, errors.As(err, &parseErr), "io failures are not parse errors")
}

func TestOptionValueKind_String(t *testing.T) {
	assert.Equal(t, "identifier", OptionValueIdentifier.String())
	assert.Equal(t, "string", OptionValueString.String())
	assert.Equal(t, "aggregate", OptionValueAggregate.String())
}
