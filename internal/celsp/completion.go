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

// This file implements completion by the placeholder re-check technique:
// a sentinel identifier is spliced in at the cursor, the result is
// reparsed and rechecked, and the resolved type of the sentinel's
// receiver in the new type map becomes the receiver type for member
// suggestions. This sidesteps hand-rolled prefix-text parsing of the
// partially typed expression — the type checker itself resolves the
// receiver, including through chained calls. When the full re-check
// fails, the receiver subexpression is checked on its own; a receiver
// bound by a comprehension does not check on its own and resolves to dyn.

package celsp

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/operators"
	"go.lsp.dev/protocol"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// placeholder is the sentinel identifier spliced in at the cursor.
const placeholder = "__cel_complete__"

// macroNames are CEL comprehension macros offered as identifier
// completions; cel-go's parser.Macro registry does not describe their
// signatures in a form useful for a detail string, so they are listed
// directly.
var macroNames = []string{"has", "all", "exists", "exists_one", "filter", "map"}

// completionContextKind distinguishes the two completion contexts
// detected by scanning backward from the cursor.
type completionContextKind int

const (
	completionMemberAccess completionContextKind = iota
	completionIdentifier
)

type completionContext struct {
	kind   completionContextKind
	prefix string
}

// detectCompletionContext scans backward from offset in source for a
// partially typed identifier, then checks whether it follows a dot.
func detectCompletionContext(source string, offset int) completionContext {
	if offset > len(source) {
		offset = len(source)
	}
	before := source[:offset]

	identStart := len(before)
	for identStart > 0 && celIsIdentChar(before[identStart-1]) {
		identStart--
	}
	prefix := before[identStart:]

	beforePrefix := strings.TrimRight(before[:identStart], " \t\r\n")
	if strings.HasSuffix(beforePrefix, ".") {
		return completionContext{kind: completionMemberAccess, prefix: prefix}
	}
	return completionContext{kind: completionIdentifier, prefix: prefix}
}

func celIsIdentChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// findPlaceholderMember finds the Select node whose field is placeholder,
// covering both regular member access (`x.__cel_complete__`) and the
// test-only form produced when completion happens inside has().
func findPlaceholderMember(root *exprpb.Expr) *exprpb.Expr {
	var found *exprpb.Expr
	walkExpr(root, func(e *exprpb.Expr) bool {
		if found != nil {
			return false
		}
		if sel, ok := e.GetExprKind().(*exprpb.Expr_SelectExpr); ok && sel.SelectExpr.GetField() == placeholder {
			found = e
			return false
		}
		return true
	})
	return found
}

// receiverID returns the expression id of node's select operand.
func receiverID(node *exprpb.Expr) (int64, bool) {
	sel, ok := node.GetExprKind().(*exprpb.Expr_SelectExpr)
	if !ok {
		return 0, false
	}
	return sel.SelectExpr.GetOperand().GetId(), true
}

// resolveReceiverType implements the placeholder re-check: source has its
// partially typed member name (of length prefixLen, possibly zero) at
// offset replaced by the placeholder, keeping everything else — closing
// parens, subsequent macro arguments, and so on — intact. The modified
// text is parsed and checked fresh, the placeholder's Select node is
// found, and its operand's resolved type is read out of the new type map.
func resolveReceiverType(source string, offset, prefixLen int, env *cel.Env) *exprpb.Type {
	insertOffset := offset - prefixLen
	if insertOffset < 0 || insertOffset > len(source) || offset > len(source) {
		return nil
	}
	modified := source[:insertOffset] + placeholder + source[offset:]

	ast, _ := env.Parse(modified)
	if ast == nil {
		return nil
	}

	if checked, _ := env.Check(ast); checked != nil {
		checkedExpr, err := cel.AstToCheckedExpr(checked)
		if err != nil {
			return nil
		}
		member := findPlaceholderMember(checkedExpr.GetExpr())
		if member == nil {
			return nil
		}
		id, ok := receiverID(member)
		if !ok {
			return nil
		}
		return checkedExpr.GetTypeMap()[id]
	}

	// Selecting the sentinel field off a concrete receiver is itself a
	// check error, and cel-go's Check withholds the whole AST on any
	// error. Recover by locating the sentinel in the parsed AST and
	// type-checking its receiver subexpression on its own.
	parsedExpr, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil
	}
	member := findPlaceholderMember(parsedExpr.GetExpr())
	if member == nil {
		return nil
	}
	sel, ok := member.GetExprKind().(*exprpb.Expr_SelectExpr)
	if !ok {
		return nil
	}
	positions := parsedExpr.GetSourceInfo().GetPositions()
	opStart, opEnd, ok := exprSpan(modified, positions, sel.SelectExpr.GetOperand())
	if !ok {
		return nil
	}

	recvAst, _ := env.Parse(modified[opStart:opEnd])
	if recvAst == nil {
		return nil
	}
	recvChecked, _ := env.Check(recvAst)
	if recvChecked == nil {
		return nil
	}
	recvCheckedExpr, err := cel.AstToCheckedExpr(recvChecked)
	if err != nil {
		return nil
	}
	return recvCheckedExpr.GetTypeMap()[recvCheckedExpr.GetExpr().GetId()]
}

// completionsForKind computes the completion list at position within
// kind, or nil if the cursor isn't in a CEL expression or nothing
// matches.
func completionsForKind(kind *documentKind, position protocol.Position, registry *protoRegistry) []protocol.CompletionItem {
	switch kind.tag {
	case kindCelDocument:
		offset, ok := kind.cel.lineIndex.positionToOffset(position)
		if !ok {
			return nil
		}
		return completionsInRegion(kind.cel, offset, registry, false)
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
		return completionsInRegion(region.state, celOffset, registry, true)
	default:
		return nil
	}
}

func completionsInRegion(state *documentState, offset int, registry *protoRegistry, isProto bool) []protocol.CompletionItem {
	ctx := detectCompletionContext(state.source, offset)

	switch ctx.kind {
	case completionMemberAccess:
		receiverType := resolveReceiverType(state.source, offset, len(ctx.prefix), state.env)
		return memberCompletions(exprTypeToCelTypeSpec(receiverType), state.env, registry, ctx.prefix, isProto)
	default:
		return identifierCompletions(state, ctx.prefix, isProto)
	}
}

// memberCompletions builds completion items for member access on a
// resolved receiver type: proto message fields (when the receiver is a
// message) followed by member functions/methods whose first argument
// accepts the receiver type.
func memberCompletions(receiverType celTypeSpec, env *cel.Env, registry *protoRegistry, prefix string, isProto bool) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	if receiverType.kind == kindMessage && registry != nil {
		if fields, ok := registry.messageFieldNames(receiverType.messageName); ok {
			for _, fieldName := range fields {
				if prefix != "" && !strings.HasPrefix(strings.ToLower(fieldName), lowerPrefix) {
					continue
				}
				fieldType, _ := registry.fieldType(receiverType.messageName, fieldName)
				item := protocol.CompletionItem{
					Label:    fieldName,
					Kind:     protocol.CompletionItemKindField,
					Detail:   fieldType,
					SortText: "0_" + fieldName,
				}
				if doc, ok := protoPrimitiveDocs[fieldType]; ok {
					item.Documentation = &protocol.MarkupContent{
						Kind:  protocol.Markdown,
						Value: fmt.Sprintf("`%s`\n\n%s", doc[0], doc[1]),
					}
				}
				items = append(items, item)
			}
		}
	}

	recvCELType := receiverType.toCELType()
	for name, fn := range env.Functions() {
		if celIsOperatorOrInternal(name) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		overload, ok := firstMatchingMemberOverload(fn, recvCELType)
		if !ok {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:            name,
			Kind:             protocol.CompletionItemKindMethod,
			Detail:           formatOverloadDetail(overload),
			Documentation:    functionDocumentation(name, fn, isProto),
			InsertText:       snippetInsertText(name, overload),
			InsertTextFormat: protocol.InsertTextFormatSnippet,
			SortText:         "1_" + name,
		})
	}

	slices.SortFunc(items, func(a, b protocol.CompletionItem) int {
		if c := cmp.Compare(a.SortText, b.SortText); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return items
}

// identifierCompletions builds completion items for a bare or partial
// identifier: declared variables, standalone functions, then macros.
func identifierCompletions(state *documentState, prefix string, isProto bool) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	names := make([]string, 0, len(state.variables))
	for name := range state.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:    name,
			Kind:     protocol.CompletionItemKindVariable,
			Detail:   state.variables[name],
			SortText: "0_" + name,
		})
	}

	if state.env != nil {
		for name, fn := range state.env.Functions() {
			if celIsOperatorOrInternal(name) {
				continue
			}
			if prefix != "" && !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
				continue
			}
			overload, ok := firstStandaloneOverload(fn)
			if !ok {
				continue
			}
			items = append(items, protocol.CompletionItem{
				Label:         name,
				Kind:          protocol.CompletionItemKindFunction,
				Detail:        formatOverloadDetail(overload),
				Documentation: functionDocumentation(name, fn, isProto),
				SortText:      "1_" + name,
			})
		}
	}

	for _, name := range macroNames {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:         name,
			Kind:          protocol.CompletionItemKindKeyword,
			Documentation: functionDocumentation(name, nil, isProto),
			SortText:      "2_" + name,
		})
	}

	slices.SortFunc(items, func(a, b protocol.CompletionItem) int {
		if c := cmp.Compare(a.SortText, b.SortText); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return items
}

func firstMatchingMemberOverload(fn *decls.FunctionDecl, receiverType *cel.Type) (*decls.OverloadDecl, bool) {
	for _, o := range fn.OverloadDecls() {
		if !o.IsMemberFunction() {
			continue
		}
		args := o.ArgTypes()
		if len(args) == 0 {
			continue
		}
		if receiverType != nil && !args[0].IsAssignableType(receiverType) {
			continue
		}
		return o, true
	}
	return nil, false
}

func firstStandaloneOverload(fn *decls.FunctionDecl) (*decls.OverloadDecl, bool) {
	for _, o := range fn.OverloadDecls() {
		if o.IsMemberFunction() {
			continue
		}
		return o, true
	}
	return nil, false
}

// celIsOperatorOrInternal reports whether name is a CEL operator or
// internal-use function, which should never appear as a completion item.
func celIsOperatorOrInternal(name string) bool {
	if _, ok := operators.FindReverse(name); ok {
		return true
	}
	return strings.HasPrefix(name, "@") || strings.HasPrefix(name, "_")
}

// formatOverloadDetail renders an overload as "(argTypes...) -> result",
// omitting the receiver argument for member functions.
func formatOverloadDetail(o *decls.OverloadDecl) string {
	args := o.ArgTypes()
	start := 0
	if o.IsMemberFunction() && len(args) > 0 {
		start = 1
	}
	parts := make([]string, 0, len(args)-start)
	for _, a := range args[start:] {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), o.ResultType().String())
}

// snippetInsertText builds a tab-stop snippet for a method call, one
// placeholder per non-receiver argument.
func snippetInsertText(name string, o *decls.OverloadDecl) string {
	args := o.ArgTypes()
	start := 0
	if o.IsMemberFunction() && len(args) > 0 {
		start = 1
	}
	n := len(args) - start
	if n <= 0 {
		return name + "()"
	}
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("${%d}", i+1)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(placeholders, ", "))
}

// functionDocumentation looks up markdown documentation for a function,
// preferring cel-go's own registered description, then falling back to
// the protovalidate builtin table for host (proto) documents.
func functionDocumentation(name string, fn *decls.FunctionDecl, isProto bool) *protocol.MarkupContent {
	if fn != nil {
		if desc := fn.Description(); desc != "" {
			return &protocol.MarkupContent{Kind: protocol.Markdown, Value: desc}
		}
	}
	if isProto {
		if builtin, ok := getProtovalidateBuiltin(name); ok {
			value := fmt.Sprintf("`%s`\n\n%s", builtin.Signature, builtin.Description)
			if builtin.Example != "" {
				value += fmt.Sprintf("\n\nExample: `%s`", builtin.Example)
			}
			return &protocol.MarkupContent{Kind: protocol.Markdown, Value: value}
		}
	}
	if name == "has" {
		return &protocol.MarkupContent{Kind: protocol.Markdown, Value: "Macro: tests whether a field is set."}
	}
	return nil
}
