package compiler

import (
	"strings"

	"github.com/platinummonkey/protorules/pkg/api/protobuf"
	"github.com/platinummonkey/protorules/pkg/rules"
)

// typeKind is the resolved shape of a field type
type typeKind int

const (
	kindUnresolved typeKind = iota
	kindBool
	kindFloat
	kindUnsigned
	kindSigned
	kindBytes
	kindString
	kindMap
	kindEnum
	kindMessage
)

var primitiveKinds = map[string]typeKind{
	"bool":     kindBool,
	"float":    kindFloat,
	"double":   kindFloat,
	"uint32":   kindUnsigned,
	"uint64":   kindUnsigned,
	"fixed32":  kindUnsigned,
	"fixed64":  kindUnsigned,
	"int32":    kindSigned,
	"int64":    kindSigned,
	"sint32":   kindSigned,
	"sint64":   kindSigned,
	"sfixed32": kindSigned,
	"sfixed64": kindSigned,
	"bytes":    kindBytes,
	"string":   kindString,
	"map":      kindMap,
}

// resolvedType is a field type after scope lookup. enum and message are
// set only for kindEnum and kindMessage.
type resolvedType struct {
	kind    typeKind
	enum    *protobuf.EnumNode
	message *protobuf.MessageNode
}

// resolveType maps a field type name to a resolvedType. Lookup order:
// primitives, map, enums (local then global), messages (local then
// global), then dotted names relative to the package and top level.
func resolveType(doc *protobuf.RootNode, scope *protobuf.MessageNode, name string) resolvedType {
	if kind, ok := primitiveKinds[name]; ok {
		return resolvedType{kind: kind}
	}
	if rt, ok := lookupSimple(doc, scope, name); ok {
		return rt
	}
	if rt, ok := lookupQualified(doc, scope, name); ok {
		return rt
	}
	return resolvedType{kind: kindUnresolved}
}

func lookupSimple(doc *protobuf.RootNode, scope *protobuf.MessageNode, name string) (resolvedType, bool) {
	if e := scope.FindEnum(name); e != nil {
		return resolvedType{kind: kindEnum, enum: e}, true
	}
	if e := doc.FindEnum(name); e != nil {
		return resolvedType{kind: kindEnum, enum: e}, true
	}
	if m := scope.FindMessage(name); m != nil {
		return resolvedType{kind: kindMessage, message: m}, true
	}
	if m := doc.FindMessage(name); m != nil {
		return resolvedType{kind: kindMessage, message: m}, true
	}
	return resolvedType{}, false
}

// lookupQualified resolves names such as "Outer.Inner" or "pkg.Outer" by
// walking nested messages. The first segment is looked up in the current
// message before the top level, like a simple name.
func lookupQualified(doc *protobuf.RootNode, scope *protobuf.MessageNode, name string) (resolvedType, bool) {
	if !strings.Contains(name, ".") {
		return resolvedType{}, false
	}
	if pkg := doc.PackageName(); pkg != "" && strings.HasPrefix(name, pkg+".") {
		name = strings.TrimPrefix(name, pkg+".")
		if !strings.Contains(name, ".") {
			return lookupSimple(doc, scope, name)
		}
	}

	segments := strings.Split(name, ".")
	container := scope.FindMessage(segments[0])
	if container == nil {
		container = doc.FindMessage(segments[0])
	}
	for _, segment := range segments[1 : len(segments)-1] {
		if container == nil {
			return resolvedType{}, false
		}
		container = container.FindMessage(segment)
	}
	if container == nil {
		return resolvedType{}, false
	}

	last := segments[len(segments)-1]
	if e := container.FindEnum(last); e != nil {
		return resolvedType{kind: kindEnum, enum: e}, true
	}
	if m := container.FindMessage(last); m != nil {
		return resolvedType{kind: kindMessage, message: m}, true
	}
	return resolvedType{}, false
}

// baseRule returns the rule for every kind except messages, which need
// recursion, and unresolved types.
func baseRule(rt resolvedType, enumsAsIntegers bool) *rules.Schema {
	switch rt.kind {
	case kindBool:
		return rules.Boolean()
	case kindFloat:
		return rules.Number()
	case kindUnsigned:
		return rules.Number().Integer().Min(0)
	case kindSigned:
		return rules.Number().Integer()
	case kindBytes:
		return rules.Binary()
	case kindString:
		return rules.String()
	case kindMap:
		return rules.Object()
	case kindEnum:
		return enumRule(rt.enum, enumsAsIntegers)
	default:
		return rules.Any()
	}
}

func enumRule(e *protobuf.EnumNode, enumsAsIntegers bool) *rules.Schema {
	values := make([]any, 0, len(e.Values))
	if enumsAsIntegers {
		for _, v := range e.Values {
			values = append(values, int64(v.Number))
		}
		return rules.Number().Integer().Valid(values...)
	}
	for _, v := range e.Values {
		values = append(values, v.Name)
	}
	return rules.String().Valid(values...)
}
