package protobuf

// RootNode represents a parsed protobuf schema document
type RootNode struct {
	Filename string
	Syntax   *SyntaxNode
	Package  *PackageNode
	Messages []*MessageNode
	Enums    []*EnumNode
}

// SyntaxNode represents a syntax statement in protobuf
type SyntaxNode struct {
	Value string // proto2 or proto3
}

// PackageNode represents a package statement in protobuf
type PackageNode struct {
	Name string
}

// OptionValueKind describes how an option literal was written
type OptionValueKind int

const (
	OptionValueIdentifier OptionValueKind = iota
	OptionValueInt
	OptionValueFloat
	OptionValueString
	OptionValueAggregate
)

func (k OptionValueKind) String() string {
	return []string{"identifier", "int", "float", "string", "aggregate"}[k]
}

// OptionNode represents a field or message option. Value holds the literal
// text with quotes removed for string literals.
type OptionNode struct {
	Name  string
	Value string
	Kind  OptionValueKind
}

// FieldNode represents a field in a message
type FieldNode struct {
	Name     string
	Type     string
	Number   int
	Repeated bool
	Optional bool
	Required bool

	// OneOf is the name of the oneof group the field belongs to. Synthetic
	// groups created for proto3 optional fields are not reported.
	OneOf string

	// Default is the `default` pseudo-option, nil when absent
	Default *OptionNode

	// Map key and value types, only set when Type is "map"
	MapKeyType   string
	MapValueType string

	Options []*OptionNode
}

// HasDefault reports whether the field declares a non-empty default value
func (f *FieldNode) HasDefault() bool {
	return f.Default != nil && f.Default.Value != ""
}

// MessageNode represents a message definition in protobuf
type MessageNode struct {
	Name   string
	Fields []*FieldNode
	Nested []*MessageNode
	Enums  []*EnumNode
	OneOfs []*OneOfNode
}

// FindEnum returns the enum nested directly in the message with the given name
func (n *MessageNode) FindEnum(name string) *EnumNode {
	return findEnum(n.Enums, name)
}

// FindMessage returns the message nested directly in the message with the given name
func (n *MessageNode) FindMessage(name string) *MessageNode {
	return findMessage(n.Nested, name)
}

// EnumValueNode represents an enum value
type EnumValueNode struct {
	Name   string
	Number int
}

// EnumNode represents an enum definition in protobuf
type EnumNode struct {
	Name   string
	Values []*EnumValueNode
}

// Value returns the enum value with the given symbolic name
func (n *EnumNode) Value(name string) (*EnumValueNode, bool) {
	for _, v := range n.Values {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// OneOfNode represents a oneof group in a message
type OneOfNode struct {
	Name   string
	Fields []*FieldNode
}

// FindEnum returns the top-level enum with the given name
func (n *RootNode) FindEnum(name string) *EnumNode {
	return findEnum(n.Enums, name)
}

// FindMessage returns the top-level message with the given name
func (n *RootNode) FindMessage(name string) *MessageNode {
	return findMessage(n.Messages, name)
}

// PackageName returns the declared package or an empty string
func (n *RootNode) PackageName() string {
	if n.Package == nil {
		return ""
	}
	return n.Package.Name
}

func findEnum(enums []*EnumNode, name string) *EnumNode {
	for _, e := range enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func findMessage(messages []*MessageNode, name string) *MessageNode {
	for _, m := range messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}
