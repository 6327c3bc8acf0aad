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

// This file provides a generic pre-order walk over the legacy CEL AST
// representation (exprpb.Expr), by value, keyed by integer node id. It
// underlies hover, completion's placeholder search, and semantic tokens.

package celsp

import exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

// walkExpr visits expr and every subexpression in pre-order (parent
// before children, children in document order), calling visit on each.
// If visit returns false, the walk stops descending into that node's
// children (but continues with siblings already scheduled).
func walkExpr(expr *exprpb.Expr, visit func(*exprpb.Expr) bool) {
	if expr == nil {
		return
	}
	if !visit(expr) {
		return
	}

	switch kind := expr.GetExprKind().(type) {
	case *exprpb.Expr_SelectExpr:
		walkExpr(kind.SelectExpr.GetOperand(), visit)
	case *exprpb.Expr_CallExpr:
		if kind.CallExpr.GetTarget() != nil {
			walkExpr(kind.CallExpr.GetTarget(), visit)
		}
		for _, arg := range kind.CallExpr.GetArgs() {
			walkExpr(arg, visit)
		}
	case *exprpb.Expr_ListExpr:
		for _, el := range kind.ListExpr.GetElements() {
			walkExpr(el, visit)
		}
	case *exprpb.Expr_StructExpr:
		for _, entry := range kind.StructExpr.GetEntries() {
			if mapKey, ok := entry.GetKeyKind().(*exprpb.Expr_CreateStruct_Entry_MapKey); ok {
				walkExpr(mapKey.MapKey, visit)
			}
			walkExpr(entry.GetValue(), visit)
		}
	case *exprpb.Expr_ComprehensionExpr:
		comp := kind.ComprehensionExpr
		walkExpr(comp.GetIterRange(), visit)
		walkExpr(comp.GetAccuInit(), visit)
		walkExpr(comp.GetLoopCondition(), visit)
		walkExpr(comp.GetLoopStep(), visit)
		walkExpr(comp.GetResult(), visit)
	}
}

// findExprByID returns the subexpression of root with the given id, or
// nil if none matches.
func findExprByID(root *exprpb.Expr, id int64) *exprpb.Expr {
	var found *exprpb.Expr
	walkExpr(root, func(e *exprpb.Expr) bool {
		if found != nil {
			return false
		}
		if e.GetId() == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// findDeepestAt returns the deepest node whose span (per exprSpan)
// contains offset, preferring a child over its parent. positions is the
// SourceInfo.Positions map for root's source.
func findDeepestAt(source string, positions map[int64]int32, root *exprpb.Expr, offset int) *exprpb.Expr {
	var deepest *exprpb.Expr
	walkExpr(root, func(e *exprpb.Expr) bool {
		start, end, ok := exprSpan(source, positions, e)
		if !ok || offset < start || offset > end {
			return true // keep descending; a child might still match
		}
		deepest = e
		return true
	})
	return deepest
}
