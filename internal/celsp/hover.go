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

// This file resolves a position to the deepest enclosing AST node and
// formats a markdown hover payload for it.

package celsp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"go.lsp.dev/protocol"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// hoverForKind computes a hover payload for position within kind, or nil
// if there's nothing to show there.
func hoverForKind(kind *documentKind, position protocol.Position) *protocol.Hover {
	switch kind.tag {
	case kindCelDocument:
		offset, ok := kind.cel.lineIndex.positionToOffset(position)
		if !ok {
			return nil
		}
		return hoverInRegion(kind.cel, offset, kind.cel.lineIndex, nil, false)
	case kindHostDocument:
		hostOffset, ok := kind.host.lineIndex.positionToOffset(position)
		if !ok {
			return nil
		}
		region := kind.host.regionAtOffset(hostOffset)
		if region == nil {
			return nil
		}
		celOffset := region.mapper.hostToCel(hostOffset, len(region.source))
		return hoverInRegion(region.state, celOffset, kind.host.lineIndex, region.mapper, true)
	default:
		return nil
	}
}

// hoverInRegion implements spec.md §4.6 for one documentState (pure CEL
// document, or one region translated to CEL-local offset already).
func hoverInRegion(state *documentState, offset int, hostLines *lineIndex, mapper *offsetMapper, isProto bool) *protocol.Hover {
	if state.parsedExpr == nil {
		return nil
	}
	root := state.parsedExpr.GetExpr()

	// (a) A check error whose span overlaps the cursor wins outright.
	for _, ce := range state.checkErrors {
		if offset >= ce.start && offset < ce.end {
			start, end := ce.start, ce.end
			if mapper != nil {
				start, end = mapper.spanToHost(start, end)
			}
			return &protocol.Hover{
				Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: formatCheckErrorHover(ce)},
				Range:    rangePtr(hostLines.spanToRange(start, end)),
			}
		}
	}

	node := findDeepestAt(state.source, state.positions, root, offset)
	if node == nil {
		return nil
	}
	start, end, ok := exprSpan(state.source, state.positions, node)
	if !ok {
		return nil
	}
	hostStart, hostEnd := start, end
	if mapper != nil {
		hostStart, hostEnd = mapper.spanToHost(start, end)
	}
	hostRange := hostLines.spanToRange(hostStart, hostEnd)

	// (b) Identifier with a known checked type.
	if ident, isIdent := node.GetExprKind().(*exprpb.Expr_IdentExpr); isIdent && state.checkedExpr != nil {
		if t, ok := state.checkedExpr.GetTypeMap()[node.GetId()]; ok {
			body := fmt.Sprintf("(variable) `%s`: `%s`", ident.IdentExpr.GetName(), celTypeDisplay(t))
			return &protocol.Hover{
				Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: body},
				Range:    rangePtr(hostRange),
			}
		}
	}

	// (c) Built-in documentation lookup.
	name, hoverKind := hoverLookupKey(node)
	if name == "" {
		return nil
	}
	body := formatBuiltinHover(name, hoverKind, state.env, isProto)
	if body == "" {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: body},
		Range:    rangePtr(hostRange),
	}
}

type hoverLookupKind int

const (
	hoverIdentOrFunction hoverLookupKind = iota
	hoverField
	hoverHas
)

// hoverLookupKey determines the documentation lookup key and kind for a
// node per spec.md §4.6(c): for an identifier its name; for a member
// access the field; for a call the callee's name or member; for a
// has-style membership test, "has".
func hoverLookupKey(node *exprpb.Expr) (string, hoverLookupKind) {
	switch kind := node.GetExprKind().(type) {
	case *exprpb.Expr_IdentExpr:
		return kind.IdentExpr.GetName(), hoverIdentOrFunction
	case *exprpb.Expr_SelectExpr:
		if kind.SelectExpr.GetTestOnly() {
			return "has", hoverHas
		}
		return kind.SelectExpr.GetField(), hoverField
	case *exprpb.Expr_CallExpr:
		call := kind.CallExpr
		if call.GetFunction() == "has" {
			return "has", hoverHas
		}
		return call.GetFunction(), hoverIdentOrFunction
	default:
		return "", hoverIdentOrFunction
	}
}

func formatBuiltinHover(name string, kind hoverLookupKind, env *cel.Env, isProto bool) string {
	if kind == hoverHas {
		return "**has**(`field`)\n\nMacro: tests whether a field is set."
	}

	if fn, ok := env.Functions()[name]; ok {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**", name)
		if desc := fn.Description(); desc != "" {
			fmt.Fprintf(&b, "\n\n%s", desc)
		}
		return b.String()
	}

	if isProto {
		if builtin, ok := getProtovalidateBuiltin(name); ok {
			var b strings.Builder
			fmt.Fprintf(&b, "**%s**`%s`\n\n%s", builtin.Name, builtin.Signature, builtin.Description)
			if builtin.Example != "" {
				fmt.Fprintf(&b, "\n\n```cel\n%s\n```", builtin.Example)
			}
			return b.String()
		}
	}

	return ""
}

var singleQuotedName = regexp.MustCompile(`'([^']*)'`)

// formatCheckErrorHover renders a check error with a stable per-kind
// template, pulling the offending names out of cel-go's message text and
// rewriting internal operator shapes (e.g. `_+_`) to their display form.
func formatCheckErrorHover(ce checkError) string {
	var names []string
	for _, m := range singleQuotedName.FindAllStringSubmatch(ce.message, -1) {
		name := m[1]
		if display, ok := operators.FindReverse(name); ok && display != "" {
			name = display
		}
		names = append(names, name)
	}

	switch ce.kind {
	case checkErrorUndeclaredReference:
		if len(names) > 0 && names[0] != "" {
			return fmt.Sprintf("Undeclared reference `%s`", names[0])
		}
	case checkErrorNoMatchingOverload:
		if len(names) > 0 && names[0] != "" {
			return fmt.Sprintf("No matching overload for `%s`", names[0])
		}
	case checkErrorTypeMismatch:
		if len(names) >= 2 {
			return fmt.Sprintf("Type mismatch: expected `%s` but found `%s`", names[0], names[1])
		}
	case checkErrorUndefinedField:
		if len(names) > 0 && names[0] != "" {
			return fmt.Sprintf("Undefined field `%s`", names[0])
		}
	}
	return ce.message
}

func rangePtr(r protocol.Range) *protocol.Range {
	return &r
}

// celTypeDisplay renders an exprpb.Type (the legacy checked-AST type
// representation) the way hover/completion detail strings present it.
func celTypeDisplay(t *exprpb.Type) string {
	if t == nil {
		return "dyn"
	}
	if kind, ok := t.GetTypeKind().(*exprpb.Type_WellKnown); ok && kind.WellKnown == exprpb.Type_ANY {
		return "any"
	}
	if kind, ok := t.GetTypeKind().(*exprpb.Type_TypeParam); ok {
		return kind.TypeParam
	}
	if _, ok := t.GetTypeKind().(*exprpb.Type_Dyn); ok {
		return "dyn"
	}
	return exprTypeToCelTypeSpec(t).displayName()
}
