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

func TestExprSpanConstLiteral(t *testing.T) {
	t.Parallel()

	source := "123 + 4"
	root, positions := parseForWalk(t, source)
	literal := root.GetCallExpr().GetArgs()[0]

	start, end, ok := exprSpan(source, positions, literal)
	require.True(t, ok)
	assert.Equal(t, "123", source[start:end])
}

func TestExprSpanStringLiteral(t *testing.T) {
	t.Parallel()

	source := `"hello" + "x"`
	root, positions := parseForWalk(t, source)
	literal := root.GetCallExpr().GetArgs()[0]

	start, end, ok := exprSpan(source, positions, literal)
	require.True(t, ok)
	assert.Equal(t, `"hello"`, source[start:end])
}

func TestExprSpanIdent(t *testing.T) {
	t.Parallel()

	source := "myvar + 1"
	root, positions := parseForWalk(t, source)
	ident := root.GetCallExpr().GetArgs()[0]

	start, end, ok := exprSpan(source, positions, ident)
	require.True(t, ok)
	assert.Equal(t, "myvar", source[start:end])
}

func TestExprSpanFieldSelect(t *testing.T) {
	t.Parallel()

	source := "this.name"
	root, positions := parseForWalk(t, source)
	require.NotNil(t, root.GetSelectExpr())

	start, end, ok := exprSpan(source, positions, root)
	require.True(t, ok)
	assert.Equal(t, "this.name", source[start:end])
}

func TestExprSpanCallWithArgs(t *testing.T) {
	t.Parallel()

	source := `"abc".contains("b")`
	root, positions := parseForWalk(t, source)
	require.NotNil(t, root.GetCallExpr())

	start, end, ok := exprSpan(source, positions, root)
	require.True(t, ok)
	assert.Equal(t, source, source[start:end])
}

func TestExprSpanListLiteral(t *testing.T) {
	t.Parallel()

	source := "[1, 2, 3]"
	root, positions := parseForWalk(t, source)
	require.NotNil(t, root.GetListExpr())

	start, end, ok := exprSpan(source, positions, root)
	require.True(t, ok)
	assert.Equal(t, source, source[start:end])
}

func TestExprSpanGlobalCall(t *testing.T) {
	t.Parallel()

	source := `size("abc")`
	root, positions := parseForWalk(t, source)
	require.NotNil(t, root.GetCallExpr())

	start, end, ok := exprSpan(source, positions, root)
	require.True(t, ok)
	assert.Equal(t, source, source[start:end])
}

func TestExprSpanMembershipTest(t *testing.T) {
	t.Parallel()

	source := "has(this.name)"
	root, positions := parseForWalk(t, source)
	require.NotNil(t, root.GetSelectExpr())
	require.True(t, root.GetSelectExpr().GetTestOnly())

	start, end, ok := exprSpan(source, positions, root)
	require.True(t, ok)
	assert.Equal(t, source, source[start:end])
}

func TestExprSpanNilExprReturnsFalse(t *testing.T) {
	t.Parallel()

	_, _, ok := exprSpan("anything", map[int64]int32{}, nil)
	assert.False(t, ok)
}

func TestRuneOffsetToByteOffsetHandlesMultibyteRunes(t *testing.T) {
	t.Parallel()

	source := "héllo"
	// rune offsets: h=0, é=1, l=2, l=3, o=4 — but é is 2 bytes, so the byte
	// offset of the second "l" is 1 (h) + 2 (é) + 1 (l) = 4, not rune offset 3.
	byteOff := runeOffsetToByteOffset(source, 3)
	assert.Equal(t, 4, byteOff)
}

func TestRuneOffsetToByteOffsetZeroAndNegative(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, runeOffsetToByteOffset("abc", 0))
	assert.Equal(t, 0, runeOffsetToByteOffset("abc", -1))
}
