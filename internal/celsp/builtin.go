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

// This file provides static documentation tables for protovalidate's CEL
// extension functions.

package celsp

import "sync"

// protovalidateBuiltin documents a single protovalidate CEL function.
type protovalidateBuiltin struct {
	Name        string
	Signature   string
	Description string
	Example     string
}

var (
	protovalidateBuiltinsOnce   sync.Once
	protovalidateBuiltinsByName map[string]protovalidateBuiltin
)

// protovalidateBuiltins returns the lazily initialized table of
// protovalidate CEL extension function documentation.
func protovalidateBuiltins() map[string]protovalidateBuiltin {
	protovalidateBuiltinsOnce.Do(func() {
		defs := []protovalidateBuiltin{
			{
				Name:        "isEmail",
				Signature:   "(string) -> bool",
				Description: "Returns true if the string is a valid email address according to RFC 5322.",
				Example:     "this.isEmail()",
			},
			{
				Name:        "isHostname",
				Signature:   "(string) -> bool",
				Description: "Returns true if the string is a valid hostname according to RFC 1123.",
				Example:     "this.isHostname()",
			},
			{
				Name:        "isIp",
				Signature:   "(string, version?) -> bool",
				Description: "Returns true if the string is a valid IP address. Optional version parameter: 4 for IPv4, 6 for IPv6.",
				Example:     "this.isIp() || this.isIp(4)",
			},
			{
				Name:        "isIpPrefix",
				Signature:   "(string, version?, strict?) -> bool",
				Description: "Returns true if the string is a valid IP prefix (CIDR notation). Optional version (4 or 6) and strict mode parameters.",
				Example:     "this.isIpPrefix()",
			},
			{
				Name:        "isUri",
				Signature:   "(string) -> bool",
				Description: "Returns true if the string is a valid URI according to RFC 3986.",
				Example:     "this.isUri()",
			},
			{
				Name:        "isUriRef",
				Signature:   "(string) -> bool",
				Description: "Returns true if the string is a valid URI reference (can be relative).",
				Example:     "this.isUriRef()",
			},
			{
				Name:        "unique",
				Signature:   "(list) -> bool",
				Description: "Returns true if all elements in the list are unique.",
				Example:     "this.unique()",
			},
			{
				Name:        "isNan",
				Signature:   "(double) -> bool",
				Description: "Returns true if the double value is NaN (Not a Number).",
				Example:     "this.isNan()",
			},
			{
				Name:        "isInf",
				Signature:   "(double, sign?) -> bool",
				Description: "Returns true if the double value is infinite. Optional sign: 1 for +Inf, -1 for -Inf, 0 for either.",
				Example:     "this.isInf() || this.isInf(1)",
			},
		}
		protovalidateBuiltinsByName = make(map[string]protovalidateBuiltin, len(defs))
		for _, def := range defs {
			protovalidateBuiltinsByName[def.Name] = def
		}
	})
	return protovalidateBuiltinsByName
}

// getProtovalidateBuiltin looks up documentation for a protovalidate
// function by name.
func getProtovalidateBuiltin(name string) (protovalidateBuiltin, bool) {
	b, ok := protovalidateBuiltins()[name]
	return b, ok
}

// protoPrimitiveDocs documents proto primitive types; completion attaches
// the entry for a message field's declared type as that field item's
// documentation.
var protoPrimitiveDocs = map[string][]string{
	"int32":    {"int32", "A 32-bit signed integer."},
	"int64":    {"int64", "A 64-bit signed integer."},
	"uint32":   {"uint32", "A 32-bit unsigned integer."},
	"uint64":   {"uint64", "A 64-bit unsigned integer."},
	"sint32":   {"sint32", "A 32-bit signed integer, zig-zag encoded."},
	"sint64":   {"sint64", "A 64-bit signed integer, zig-zag encoded."},
	"fixed32":  {"fixed32", "A 32-bit unsigned integer, fixed width encoded."},
	"fixed64":  {"fixed64", "A 64-bit unsigned integer, fixed width encoded."},
	"sfixed32": {"sfixed32", "A 32-bit signed integer, fixed width encoded."},
	"sfixed64": {"sfixed64", "A 64-bit signed integer, fixed width encoded."},
	"float":    {"float", "A single-precision floating point number."},
	"double":   {"double", "A double-precision floating point number."},
	"bool":     {"bool", "A boolean value."},
	"string":   {"string", "A UTF-8 encoded string."},
	"bytes":    {"bytes", "An arbitrary byte sequence."},
	"default":  {"message", "A message type."},
}
