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

	"github.com/stretchr/testify/require"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// parseForWalk parses source with a no-op default environment and returns
// the root expression plus its id->offset position map, for testing the
// AST-walking helpers directly.
func parseForWalk(t *testing.T, source string) (*exprpb.Expr, map[int64]int32) {
	t.Helper()
	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", source, 1)
	require.Equal(t, kindCelDocument, kind.tag)
	require.NotNil(t, kind.cel.parsedExpr)
	return kind.cel.parsedExpr.GetExpr(), kind.cel.positions
}

func TestWalkExprVisitsEveryNode(t *testing.T) {
	t.Parallel()

	root, _ := parseForWalk(t, "1 + 2")
	var count int
	walkExpr(root, func(*exprpb.Expr) bool {
		count++
		return true
	})
	// root (the "+" call) plus its two int literal arguments.
	require.Equal(t, 3, count)
}

func TestWalkExprStopsDescendingWhenVisitReturnsFalse(t *testing.T) {
	t.Parallel()

	root, _ := parseForWalk(t, "1 + 2")
	var count int
	walkExpr(root, func(*exprpb.Expr) bool {
		count++
		return false // never descend past the root
	})
	require.Equal(t, 1, count)
}

func TestWalkExprNilRootIsNoop(t *testing.T) {
	t.Parallel()

	called := false
	walkExpr(nil, func(*exprpb.Expr) bool {
		called = true
		return true
	})
	require.False(t, called)
}

func TestFindExprByIDFindsLeafAndMiss(t *testing.T) {
	t.Parallel()

	root, _ := parseForWalk(t, "1 + 2")
	require.Equal(t, root.GetId(), findExprByID(root, root.GetId()).GetId())
	require.Nil(t, findExprByID(root, -9999))
}

func TestFindExprByIDFindsListElement(t *testing.T) {
	t.Parallel()

	root, _ := parseForWalk(t, "[1, 2, 3]")
	list := root.GetListExpr()
	require.NotNil(t, list)
	require.Len(t, list.GetElements(), 3)

	second := list.GetElements()[1]
	found := findExprByID(root, second.GetId())
	require.NotNil(t, found)
	require.Equal(t, second.GetId(), found.GetId())
}

func TestFindDeepestAtPrefersChildOverParent(t *testing.T) {
	t.Parallel()

	source := "1 + 2"
	root, positions := parseForWalk(t, source)

	// Offset 0 lands on the literal "1", a child of the "+" call.
	deepest := findDeepestAt(source, positions, root, 0)
	require.NotNil(t, deepest)
	_, isConst := deepest.GetExprKind().(*exprpb.Expr_ConstExpr)
	require.True(t, isConst, "expected the deepest node at offset 0 to be the literal, not the call")
}

func TestFindDeepestAtOutOfRangeReturnsNil(t *testing.T) {
	t.Parallel()

	source := "1 + 2"
	root, positions := parseForWalk(t, source)
	require.Nil(t, findDeepestAt(source, positions, root, 1000))
}
