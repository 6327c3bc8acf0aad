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

// This file builds *cel.Env instances: the default environment for pure
// CEL documents, and the protovalidate-flavored environment bound to a
// region's `this` type for embedded expressions.

package celsp

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// newDefaultEnv builds the environment used for pure-CEL documents:
// standard library plus the extensions selected in settings (all of them
// when settings name none).
func newDefaultEnv(settings EnvSettings, registry *protoRegistry) (*cel.Env, error) {
	opts := baseEnvOptions(settings, registry)
	return cel.NewEnv(opts...)
}

// newProtovalidateEnv builds the environment used for one embedded CEL
// region: standard library, the extensions selected in settings (all of
// them when settings name none), the protovalidate function set, and
// `this`/`rules`/`now` bound per the region's context.
func newProtovalidateEnv(context protovalidateContext, settings EnvSettings, registry *protoRegistry) (*cel.Env, error) {
	opts := baseEnvOptions(settings, registry)
	opts = append(opts,
		protovalidateFunctionDecls()...,
	)
	opts = append(opts,
		cel.Variable("this", resolveThisType(context, registry).toCELType()),
		cel.Variable("rules", cel.DynType),
		cel.Variable("now", cel.TimestampType),
	)
	return cel.NewEnv(opts...)
}

// resolveThisType resolves context's `this` type, upgrading a short
// message name to its fully-qualified name via the proto registry when a
// unique match exists, and leaving it unchanged otherwise.
func resolveThisType(context protovalidateContext, registry *protoRegistry) celTypeSpec {
	t := context.thisType()
	if t.kind != kindMessage || registry == nil {
		return t
	}
	if qualified, ok := registry.qualifyMessageName(t.messageName); ok {
		return messageType(qualified)
	}
	return t
}

func baseEnvOptions(settings EnvSettings, registry *protoRegistry) []cel.EnvOption {
	var opts []cel.EnvOption
	opts = append(opts, extensionOptions(settings.Extensions)...)

	if settings.Container != "" {
		opts = append(opts, cel.Container(settings.Container))
	}
	if len(settings.Abbreviations) > 0 {
		opts = append(opts, cel.Abbrevs(settings.Abbreviations...))
	}
	for name, typeString := range settings.Variables {
		t, err := parseTypeString(typeString)
		if err != nil {
			continue // malformed variable type strings warn at settings-load time
		}
		opts = append(opts, cel.Variable(name, t.toCELType()))
	}
	if registry != nil {
		for _, fd := range registry.files() {
			opts = append(opts, cel.TypeDescs(fd))
		}
	}
	return opts
}

func extensionOptions(names []string) []cel.EnvOption {
	if len(names) == 0 {
		// No explicit selection enables everything.
		names = []string{"all"}
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	if set["all"] {
		return []cel.EnvOption{
			ext.Strings(),
			ext.Math(),
			ext.Encoders(),
			cel.OptionalTypes(),
		}
	}
	var opts []cel.EnvOption
	if set["strings"] {
		opts = append(opts, ext.Strings())
	}
	if set["math"] {
		opts = append(opts, ext.Math())
	}
	if set["encoders"] {
		opts = append(opts, ext.Encoders())
	}
	if set["optionals"] {
		opts = append(opts, cel.OptionalTypes())
	}
	return opts
}

// protovalidateFunctionDecls declares the protovalidate CEL extension
// functions (§6) for type checking. These are declaration-only: this
// server never evaluates CEL, so no binding is supplied.
func protovalidateFunctionDecls() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("isEmail",
			cel.MemberOverload("string_is_email", []*cel.Type{cel.StringType}, cel.BoolType)),
		cel.Function("isHostname",
			cel.MemberOverload("string_is_hostname", []*cel.Type{cel.StringType}, cel.BoolType)),
		cel.Function("isIp",
			cel.MemberOverload("string_is_ip", []*cel.Type{cel.StringType}, cel.BoolType),
			cel.MemberOverload("string_is_ip_version", []*cel.Type{cel.StringType, cel.IntType}, cel.BoolType)),
		cel.Function("isIpPrefix",
			cel.MemberOverload("string_is_ip_prefix", []*cel.Type{cel.StringType}, cel.BoolType),
			cel.MemberOverload("string_is_ip_prefix_version", []*cel.Type{cel.StringType, cel.IntType}, cel.BoolType),
			cel.MemberOverload("string_is_ip_prefix_version_strict", []*cel.Type{cel.StringType, cel.IntType, cel.BoolType}, cel.BoolType)),
		cel.Function("isUri",
			cel.MemberOverload("string_is_uri", []*cel.Type{cel.StringType}, cel.BoolType)),
		cel.Function("isUriRef",
			cel.MemberOverload("string_is_uri_ref", []*cel.Type{cel.StringType}, cel.BoolType)),
		cel.Function("unique",
			cel.MemberOverload("list_unique", []*cel.Type{cel.ListType(cel.DynType)}, cel.BoolType)),
		cel.Function("isNan",
			cel.MemberOverload("double_is_nan", []*cel.Type{cel.DoubleType}, cel.BoolType)),
		cel.Function("isInf",
			cel.MemberOverload("double_is_inf", []*cel.Type{cel.DoubleType}, cel.BoolType),
			cel.MemberOverload("double_is_inf_sign", []*cel.Type{cel.DoubleType, cel.IntType}, cel.BoolType)),
	}
}
