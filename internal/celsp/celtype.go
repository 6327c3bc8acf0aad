// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file maps proto field type strings and settings.toml type strings
// onto CEL types, used to build `this`/`rules`/user-declared variables.

package celsp

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// celTypeKind enumerates the shapes a celTypeSpec can take.
type celTypeKind int

const (
	kindDyn celTypeKind = iota
	kindBool
	kindInt
	kindUint
	kindDouble
	kindString
	kindBytes
	kindNull
	kindTimestamp
	kindDuration
	kindError
	kindList
	kindMap
	kindMessage
	kindOptional
	kindType
	kindWrapper
)

// celTypeSpec is a small sum-type description of a CEL type, used before
// an actual *cel.Type is constructed for environment declarations, and for
// producing display names independent of cel-go's own formatting.
type celTypeSpec struct {
	kind        celTypeKind
	messageName string       // kindMessage
	elem        *celTypeSpec // kindList, kindOptional, kindType, kindWrapper
	key         *celTypeSpec // kindMap
	value       *celTypeSpec // kindMap
}

func dynType() celTypeSpec { return celTypeSpec{kind: kindDyn} }

func messageType(name string) celTypeSpec {
	return celTypeSpec{kind: kindMessage, messageName: name}
}
func listType(elem celTypeSpec) celTypeSpec {
	return celTypeSpec{kind: kindList, elem: &elem}
}
func mapType(key, value celTypeSpec) celTypeSpec {
	return celTypeSpec{kind: kindMap, key: &key, value: &value}
}

// protoFieldTypeToCEL maps a proto field type string (as it appears in a
// .proto field declaration, e.g. "int32", "repeated string", "map<string,
// Foo>", "bytes", "MyMessage") onto a CEL type.
func protoFieldTypeToCEL(protoType string) celTypeSpec {
	switch protoType {
	case "bool":
		return celTypeSpec{kind: kindBool}
	case "int32", "int64", "sint32", "sint64", "sfixed32", "sfixed64":
		return celTypeSpec{kind: kindInt}
	case "uint32", "uint64", "fixed32", "fixed64":
		return celTypeSpec{kind: kindUint}
	case "float", "double":
		return celTypeSpec{kind: kindDouble}
	case "string":
		return celTypeSpec{kind: kindString}
	case "bytes":
		return celTypeSpec{kind: kindBytes}
	}

	if inner, ok := strings.CutPrefix(protoType, "repeated "); ok {
		return listType(protoFieldTypeToCEL(inner))
	}
	if strings.HasPrefix(protoType, "map<") {
		return mapType(dynType(), dynType())
	}
	if strings.Contains(protoType, ".") || (len(protoType) > 0 && protoType[0] >= 'A' && protoType[0] <= 'Z') {
		return messageType(protoType)
	}
	return dynType()
}

// parseTypeString parses a settings.toml type string as described in
// spec.md §6: primitives, null/dyn/timestamp/duration/error, and the
// parameterized forms list(T), map(K,V), optional(T), type(T), wrapper(T)
// (comma inside map respects nested parentheses). Any other bare name is
// a message type.
func parseTypeString(s string) (celTypeSpec, error) {
	s = strings.TrimSpace(s)

	if openParen := strings.IndexByte(s, '('); openParen != -1 {
		if !strings.HasSuffix(s, ")") {
			return celTypeSpec{}, fmt.Errorf("malformed type string: missing closing paren in %q", s)
		}
		typeName := s[:openParen]
		inner := s[openParen+1 : len(s)-1]

		switch typeName {
		case "list":
			elem, err := parseTypeString(inner)
			if err != nil {
				return celTypeSpec{}, err
			}
			return listType(elem), nil
		case "map":
			keyStr, valStr, err := splitMapTypes(inner)
			if err != nil {
				return celTypeSpec{}, err
			}
			key, err := parseTypeString(keyStr)
			if err != nil {
				return celTypeSpec{}, err
			}
			value, err := parseTypeString(valStr)
			if err != nil {
				return celTypeSpec{}, err
			}
			return mapType(key, value), nil
		case "optional":
			elem, err := parseTypeString(inner)
			if err != nil {
				return celTypeSpec{}, err
			}
			return celTypeSpec{kind: kindOptional, elem: &elem}, nil
		case "type":
			elem, err := parseTypeString(inner)
			if err != nil {
				return celTypeSpec{}, err
			}
			return celTypeSpec{kind: kindType, elem: &elem}, nil
		case "wrapper":
			elem, err := parseTypeString(inner)
			if err != nil {
				return celTypeSpec{}, err
			}
			return celTypeSpec{kind: kindWrapper, elem: &elem}, nil
		default:
			return celTypeSpec{}, fmt.Errorf("unknown parameterized type: %q", typeName)
		}
	}

	switch s {
	case "bool":
		return celTypeSpec{kind: kindBool}, nil
	case "int":
		return celTypeSpec{kind: kindInt}, nil
	case "uint":
		return celTypeSpec{kind: kindUint}, nil
	case "double":
		return celTypeSpec{kind: kindDouble}, nil
	case "string":
		return celTypeSpec{kind: kindString}, nil
	case "bytes":
		return celTypeSpec{kind: kindBytes}, nil
	case "null":
		return celTypeSpec{kind: kindNull}, nil
	case "dyn":
		return dynType(), nil
	case "timestamp":
		return celTypeSpec{kind: kindTimestamp}, nil
	case "duration":
		return celTypeSpec{kind: kindDuration}, nil
	case "error":
		return celTypeSpec{kind: kindError}, nil
	case "":
		return celTypeSpec{}, fmt.Errorf("empty type string")
	default:
		if !isQualifiedTypeName(s) {
			return celTypeSpec{}, fmt.Errorf("invalid type name: %q", s)
		}
		return messageType(s), nil
	}
}

// isQualifiedTypeName reports whether s is a dot-separated identifier
// path, the only form accepted as a message type name.
func isQualifiedTypeName(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			c := part[i]
			switch {
			case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			case i > 0 && c >= '0' && c <= '9':
			default:
				return false
			}
		}
	}
	return true
}

// exprTypeToCelTypeSpec converts a legacy checked-AST exprpb.Type (as
// found in CheckedExpr's type map) into a celTypeSpec, so a resolved
// receiver type can drive both proto field lookups and *cel.Type
// overload-assignability checks via toCELType.
func exprTypeToCelTypeSpec(t *exprpb.Type) celTypeSpec {
	if t == nil {
		return dynType()
	}
	switch kind := t.GetTypeKind().(type) {
	case *exprpb.Type_Primitive:
		switch kind.Primitive {
		case exprpb.Type_BOOL:
			return celTypeSpec{kind: kindBool}
		case exprpb.Type_INT64:
			return celTypeSpec{kind: kindInt}
		case exprpb.Type_UINT64:
			return celTypeSpec{kind: kindUint}
		case exprpb.Type_DOUBLE:
			return celTypeSpec{kind: kindDouble}
		case exprpb.Type_STRING:
			return celTypeSpec{kind: kindString}
		case exprpb.Type_BYTES:
			return celTypeSpec{kind: kindBytes}
		}
	case *exprpb.Type_Wrapper:
		return exprTypeToCelTypeSpec(&exprpb.Type{TypeKind: &exprpb.Type_Primitive{Primitive: kind.Wrapper}})
	case *exprpb.Type_ListType_:
		elem := exprTypeToCelTypeSpec(kind.ListType.GetElemType())
		return listType(elem)
	case *exprpb.Type_MapType_:
		key := exprTypeToCelTypeSpec(kind.MapType.GetKeyType())
		value := exprTypeToCelTypeSpec(kind.MapType.GetValueType())
		return mapType(key, value)
	case *exprpb.Type_MessageType:
		return messageType(kind.MessageType)
	case *exprpb.Type_Null:
		return celTypeSpec{kind: kindNull}
	case *exprpb.Type_WellKnown:
		switch kind.WellKnown {
		case exprpb.Type_DURATION:
			return celTypeSpec{kind: kindDuration}
		case exprpb.Type_TIMESTAMP:
			return celTypeSpec{kind: kindTimestamp}
		}
	}
	return dynType()
}

// splitMapTypes splits "K, V" respecting nested parentheses, as used by
// the map(K,V) type-string grammar.
func splitMapTypes(s string) (string, string, error) {
	depth := 0
	splitPos := -1
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if splitPos != -1 {
					return "", "", fmt.Errorf("map type has more than 2 parameters: %q", s)
				}
				splitPos = i
			}
		}
	}
	if splitPos == -1 {
		return "", "", fmt.Errorf("map type must have 2 parameters: %q", s)
	}
	return strings.TrimSpace(s[:splitPos]), strings.TrimSpace(s[splitPos+1:]), nil
}

// toCELType converts a celTypeSpec into a *cel.Type usable in environment
// declarations (cel.Variable, function overload arg/result types).
func (t celTypeSpec) toCELType() *cel.Type {
	switch t.kind {
	case kindBool:
		return cel.BoolType
	case kindInt:
		return cel.IntType
	case kindUint:
		return cel.UintType
	case kindDouble:
		return cel.DoubleType
	case kindString:
		return cel.StringType
	case kindBytes:
		return cel.BytesType
	case kindNull:
		return cel.NullType
	case kindTimestamp:
		return cel.TimestampType
	case kindDuration:
		return cel.DurationType
	case kindError:
		return types.ErrorType
	case kindList:
		return cel.ListType(t.elem.toCELType())
	case kindMap:
		return cel.MapType(t.key.toCELType(), t.value.toCELType())
	case kindMessage:
		return cel.ObjectType(t.messageName)
	case kindOptional:
		return cel.OptionalType(t.elem.toCELType())
	case kindType:
		return cel.TypeType
	case kindWrapper:
		return t.elem.toCELType()
	default:
		return cel.DynType
	}
}

// displayName renders the type the way hover and completion detail
// strings present it.
func (t celTypeSpec) displayName() string {
	switch t.kind {
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindUint:
		return "uint"
	case kindDouble:
		return "double"
	case kindString:
		return "string"
	case kindBytes:
		return "bytes"
	case kindNull:
		return "null"
	case kindTimestamp:
		return "timestamp"
	case kindDuration:
		return "duration"
	case kindError:
		return "error"
	case kindList:
		return fmt.Sprintf("list(%s)", t.elem.displayName())
	case kindMap:
		return fmt.Sprintf("map(%s, %s)", t.key.displayName(), t.value.displayName())
	case kindMessage:
		return t.messageName
	case kindOptional:
		return fmt.Sprintf("optional(%s)", t.elem.displayName())
	case kindType:
		return fmt.Sprintf("type(%s)", t.elem.displayName())
	case kindWrapper:
		return fmt.Sprintf("wrapper(%s)", t.elem.displayName())
	default:
		return "dyn"
	}
}
