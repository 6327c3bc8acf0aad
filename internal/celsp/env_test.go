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

package celsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultEnvDeclaresSettingsVariables(t *testing.T) {
	t.Parallel()

	settings := EnvSettings{
		Variables: map[string]string{"greeting": "string"},
	}
	env, err := newDefaultEnv(settings, nil)
	require.NoError(t, err)

	state := newDocumentState("greeting.size() > 0", env, settingsVariableTypes(settings))
	assert.Empty(t, state.checkErrors)
}

func TestNewProtovalidateEnvBindsThisRulesNow(t *testing.T) {
	t.Parallel()

	context := protovalidateContext{kind: contextField, fieldType: "string"}
	env, err := newProtovalidateEnv(context, EnvSettings{}, nil)
	require.NoError(t, err)

	state := newDocumentState(`this.isEmail() && rules != null && now > timestamp("2020-01-01T00:00:00Z")`, env, nil)
	assert.Empty(t, state.checkErrors)
}

func TestProtovalidateFunctionDeclsTypeCheck(t *testing.T) {
	t.Parallel()

	context := protovalidateContext{kind: contextField, fieldType: "string"}
	env, err := newProtovalidateEnv(context, EnvSettings{}, nil)
	require.NoError(t, err)

	testCases := []string{
		`this.isEmail()`,
		`this.isHostname()`,
		`this.isIp()`,
		`this.isIp(4)`,
		`this.isIpPrefix()`,
		`this.isIpPrefix(4)`,
		`this.isIpPrefix(4, true)`,
		`this.isUri()`,
		`this.isUriRef()`,
	}
	for _, expr := range testCases {
		state := newDocumentState(expr, env, nil)
		assert.Emptyf(t, state.checkErrors, "expr=%q errors=%v", expr, state.checkErrors)
	}
}

func TestNewDefaultEnvEnablesAllExtensionsByDefault(t *testing.T) {
	t.Parallel()

	env, err := newDefaultEnv(EnvSettings{}, nil)
	require.NoError(t, err)

	// charAt comes from the strings extension; with no explicit
	// extensions setting, everything is enabled.
	state := newDocumentState(`"hello".charAt(0) == "h"`, env, nil)
	assert.Empty(t, state.checkErrors)
}

func TestExtensionOptionsAll(t *testing.T) {
	t.Parallel()

	settings := EnvSettings{Extensions: []string{"all"}}
	env, err := newDefaultEnv(settings, nil)
	require.NoError(t, err)

	// ext.Strings() adds string-extension methods like charAt.
	state := newDocumentState(`"hello".charAt(0) == "h"`, env, nil)
	assert.Empty(t, state.checkErrors)

	// cel.OptionalTypes() adds optional.of.
	state = newDocumentState(`optional.of(1).hasValue()`, env, nil)
	assert.Empty(t, state.checkErrors)
}

func TestExtensionOptionsUnknownNamesIgnored(t *testing.T) {
	t.Parallel()

	settings := EnvSettings{Extensions: []string{"not-a-real-extension"}}
	_, err := newDefaultEnv(settings, nil)
	assert.NoError(t, err)
}

func TestResolveThisTypeUpgradesShortMessageName(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	context := protovalidateContext{kind: contextMessage, messageType: "U"}
	resolved := resolveThisType(context, registry)
	assert.Equal(t, "test.U", resolved.messageName)

	noRegistry := resolveThisType(context, nil)
	assert.Equal(t, "U", noRegistry.messageName)
}
