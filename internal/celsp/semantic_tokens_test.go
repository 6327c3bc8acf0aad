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

// decodedToken is a delta-decoded semantic token, restated in absolute
// line/character terms for readable assertions.
type decodedToken struct {
	line, char, length   int
	tokenType, modifiers uint32
}

func decodeTokens(data []uint32) []decodedToken {
	var out []decodedToken
	var line, char int
	for i := 0; i+4 < len(data); i += 5 {
		deltaLine := int(data[i])
		deltaCol := int(data[i+1])
		length := int(data[i+2])
		tokenType := data[i+3]
		modifiers := data[i+4]
		if deltaLine == 0 {
			char += deltaCol
		} else {
			line += deltaLine
			char = deltaCol
		}
		out = append(out, decodedToken{line: line, char: char, length: length, tokenType: tokenType, modifiers: modifiers})
	}
	return out
}

func TestEncodeSemanticTokensDeltaEncoding(t *testing.T) {
	t.Parallel()

	lines := newLineIndex("1 + 1")
	tokens := []rawToken{
		{start: 0, length: 1, tokenType: semTypeNumber},
		{start: 2, length: 1, tokenType: semTypeOperator},
		{start: 4, length: 1, tokenType: semTypeNumber},
	}
	encoded := encodeSemanticTokens(tokens, lines)
	require.NotNil(t, encoded)
	assert.Equal(t, []uint32{
		0, 0, 1, uint32(semTypeNumber), 0,
		0, 2, 1, uint32(semTypeOperator), 0,
		0, 2, 1, uint32(semTypeNumber), 0,
	}, encoded.Data)
}

func TestEncodeSemanticTokensDropsMultiLineTokens(t *testing.T) {
	t.Parallel()

	source := "ab\ncd"
	lines := newLineIndex(source)
	tokens := []rawToken{
		{start: 0, length: len(source), tokenType: semTypeString}, // spans both lines
		{start: 0, length: 2, tokenType: semTypeVariable},
	}
	encoded := encodeSemanticTokens(tokens, lines)
	require.NotNil(t, encoded)
	decoded := decodeTokens(encoded.Data)
	require.Len(t, decoded, 1)
	assert.Equal(t, uint32(semTypeVariable), decoded[0].tokenType)
}

func TestEncodeSemanticTokensEmptyReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, encodeSemanticTokens(nil, newLineIndex("")))
}

func TestBuiltinFunctionNamesNilEnv(t *testing.T) {
	t.Parallel()

	assert.Nil(t, builtinFunctionNames(nil))
}

func TestSemanticTokensForKindBinaryExpression(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "1 + 1", 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)

	decoded := decodeTokens(tokens.Data)
	require.Len(t, decoded, 3)
	assert.Equal(t, uint32(semTypeNumber), decoded[0].tokenType)
	assert.Equal(t, 0, decoded[0].char)
	assert.Equal(t, uint32(semTypeOperator), decoded[1].tokenType)
	assert.Equal(t, 2, decoded[1].char)
	assert.Equal(t, uint32(semTypeNumber), decoded[2].tokenType)
	assert.Equal(t, 4, decoded[2].char)
}

func TestSemanticTokensForKindFunctionCallMarksBuiltin(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "size(x)", 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)

	decoded := decodeTokens(tokens.Data)
	require.NotEmpty(t, decoded)

	first := decoded[0]
	assert.Equal(t, uint32(semTypeFunction), first.tokenType)
	assert.Equal(t, 0, first.char)
	assert.Equal(t, 4, first.length)
	assert.Equal(t, uint32(semModifierDefaultLibrary), first.modifiers)

	var sawVariable bool
	for _, tok := range decoded {
		if tok.tokenType == semTypeVariable {
			sawVariable = true
		}
	}
	assert.True(t, sawVariable, "expected an identifier token for x")
}

func TestSemanticTokensForKindMethodCallMarksBuiltin(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", `"abc".contains("b")`, 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)

	decoded := decodeTokens(tokens.Data)

	var sawMethod, sawStrings bool
	for _, tok := range decoded {
		if tok.tokenType == semTypeMethod {
			sawMethod = true
			assert.Equal(t, uint32(semModifierDefaultLibrary), tok.modifiers)
		}
		if tok.tokenType == semTypeString {
			sawStrings = true
		}
	}
	assert.True(t, sawMethod, "expected a method token for contains")
	assert.True(t, sawStrings, "expected string tokens for the receiver and argument literals")
}

func TestSemanticTokensForKindListLiteral(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "[1, 2]", 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)

	decoded := decodeTokens(tokens.Data)
	var numberCount, punctCount int
	for _, tok := range decoded {
		switch tok.tokenType {
		case uint32(semTypeNumber):
			numberCount++
		case uint32(semTypePunctuation):
			punctCount++
		}
	}
	assert.Equal(t, 2, numberCount)
	assert.GreaterOrEqual(t, punctCount, 3) // '[', ',', ']'
}

func TestSemanticTokensForKindIndexExpression(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "x[0]", 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)

	decoded := decodeTokens(tokens.Data)
	var sawVariable, sawNumber bool
	var punctCount int
	for _, tok := range decoded {
		switch tok.tokenType {
		case uint32(semTypeVariable):
			sawVariable = true
		case uint32(semTypeNumber):
			sawNumber = true
		case uint32(semTypePunctuation):
			punctCount++
		}
	}
	assert.True(t, sawVariable)
	assert.True(t, sawNumber)
	assert.Equal(t, 2, punctCount) // '[' and ']'
}

func TestSemanticTokensForKindBooleanKeyword(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "true", 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)
	decoded := decodeTokens(tokens.Data)
	require.Len(t, decoded, 1)
	assert.Equal(t, uint32(semTypeKeyword), decoded[0].tokenType)
}

func TestSemanticTokensForKindNoParseIsNil(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "(((", 1)

	assert.Nil(t, semanticTokensForKind(kind))
}

func TestSemanticTokensForKindHostDocumentTranslatesToHostCoordinates(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	source := `message U {
  option (buf.validate.message).cel = {
    expression: "this.size() > 0"
  };
}
`
	kind := store.open("file:///test.proto", source, 1)
	require.Equal(t, kindHostDocument, kind.tag)
	require.Len(t, kind.host.regions, 1)

	tokens := semanticTokensForKind(kind)
	require.NotNil(t, tokens)
	decoded := decodeTokens(tokens.Data)
	require.NotEmpty(t, decoded)

	// Every decoded token must land within the line that actually holds
	// the embedded expression in the host text, not at CEL-local offset 0.
	exprLine := 2 // zero-indexed: line 0 is "message U {", line 1 the option, line 2 the expression
	for _, tok := range decoded {
		assert.Equal(t, exprLine, tok.line)
	}
}
