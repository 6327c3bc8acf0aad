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

// This file walks a document's CEL AST (or, for host documents, each
// region's AST translated to host coordinates) and emits delta-encoded
// semantic tokens per spec.md §4.8.

package celsp

import (
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"go.lsp.dev/protocol"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Token type legend, fixed order (index is the legend position).
const (
	semTypeKeyword = iota
	semTypeNumber
	semTypeString
	semTypeOperator
	semTypeVariable
	semTypeFunction
	semTypeMethod
	semTypePunctuation
)

// semModifierDefaultLibrary is bit 0 of the modifier bitset, set on
// tokens naming a function declared by the environment (standard
// library, enabled extensions and protovalidate functions alike).
const semModifierDefaultLibrary = 1 << 0

var semanticTokenTypeLegend = []string{
	string(protocol.SemanticTokenKeyword),
	string(protocol.SemanticTokenNumber),
	string(protocol.SemanticTokenString),
	string(protocol.SemanticTokenOperator),
	string(protocol.SemanticTokenVariable),
	string(protocol.SemanticTokenFunction),
	string(protocol.SemanticTokenMethod),
	"punctuation",
}

var semanticTokenModifierLegend = []string{
	string(protocol.SemanticTokenModifierDefaultLibrary),
}

// rawToken is a semantic token before sorting and delta encoding,
// positioned in the coordinate space it was collected in (CEL-local for
// a pure-CEL document, or already host-translated for a region).
type rawToken struct {
	start     int
	length    int
	tokenType uint32
	modifiers uint32
}

// semanticTokensForKind computes the full delta-encoded token array for
// kind, or nil if it carries no parseable content.
func semanticTokensForKind(kind *documentKind) *protocol.SemanticTokens {
	switch kind.tag {
	case kindCelDocument:
		tokens := collectSemanticTokens(kind.cel, nil)
		return encodeSemanticTokens(tokens, kind.cel.lineIndex)
	case kindHostDocument:
		var tokens []rawToken
		for _, region := range kind.host.regions {
			tokens = append(tokens, collectSemanticTokens(region.state, region.mapper)...)
		}
		return encodeSemanticTokens(tokens, kind.host.lineIndex)
	default:
		return nil
	}
}

func collectSemanticTokens(state *documentState, mapper *offsetMapper) []rawToken {
	if state.parsedExpr == nil {
		return nil
	}
	builtins := builtinFunctionNames(state.env)
	w := &tokenWalker{source: state.source, positions: state.positions, builtins: builtins}
	w.walk(state.parsedExpr.GetExpr())

	if mapper == nil {
		return w.tokens
	}
	translated := make([]rawToken, 0, len(w.tokens))
	for _, t := range w.tokens {
		hostStart, hostEnd := mapper.spanToHost(t.start, t.start+t.length)
		translated = append(translated, rawToken{start: hostStart, length: hostEnd - hostStart, tokenType: t.tokenType, modifiers: t.modifiers})
	}
	return translated
}

// builtinFunctionNames returns the set of function names declared in env
// (standard library plus any active extensions and protovalidate
// functions), used to set the defaultLibrary modifier on identifier,
// function, and method tokens. Operator overload shapes and internal
// names are excluded since they never surface as identifier text.
func builtinFunctionNames(env *cel.Env) map[string]bool {
	if env == nil {
		return nil
	}
	names := make(map[string]bool, len(env.Functions()))
	for name := range env.Functions() {
		if celIsOperatorOrInternal(name) {
			continue
		}
		names[name] = true
	}
	return names
}

type tokenWalker struct {
	source    string
	positions map[int64]int32
	builtins  map[string]bool
	tokens    []rawToken
}

func (w *tokenWalker) emit(start, end int, tokenType uint32, modifiers uint32) {
	if end <= start {
		return
	}
	w.tokens = append(w.tokens, rawToken{start: start, length: end - start, tokenType: tokenType, modifiers: modifiers})
}

func (w *tokenWalker) span(expr *exprpb.Expr) (int, int, bool) {
	return exprSpan(w.source, w.positions, expr)
}

func (w *tokenWalker) isBuiltinFunction(name string) bool {
	if w.builtins == nil {
		return false
	}
	return w.builtins[name]
}

// walk implements the pre-order token walk described in spec.md §4.8.
func (w *tokenWalker) walk(expr *exprpb.Expr) {
	if expr == nil {
		return
	}
	start, end, ok := w.span(expr)
	if !ok {
		return
	}

	switch kind := expr.GetExprKind().(type) {
	case *exprpb.Expr_ConstExpr:
		w.walkConst(kind.ConstExpr, start, end)

	case *exprpb.Expr_IdentExpr:
		name := kind.IdentExpr.GetName()
		if name == "true" || name == "false" || name == "null" {
			w.emit(start, end, semTypeKeyword, 0)
			return
		}
		modifiers := uint32(0)
		if w.isBuiltinFunction(name) {
			modifiers = semModifierDefaultLibrary
		}
		w.emit(start, end, semTypeVariable, modifiers)

	case *exprpb.Expr_SelectExpr:
		w.walkSelect(kind.SelectExpr, start, end)

	case *exprpb.Expr_CallExpr:
		w.walkCall(kind.CallExpr, start, end)

	case *exprpb.Expr_ListExpr:
		w.walkList(kind.ListExpr, start, end)

	case *exprpb.Expr_StructExpr:
		w.walkStruct(kind.StructExpr, start, end)

	case *exprpb.Expr_ComprehensionExpr:
		comp := kind.ComprehensionExpr
		w.walk(comp.GetIterRange())
		w.walk(comp.GetAccuInit())
		w.walk(comp.GetLoopCondition())
		w.walk(comp.GetLoopStep())
		w.walk(comp.GetResult())
	}
}

func (w *tokenWalker) walkConst(c *exprpb.Constant, start, end int) {
	switch c.GetConstantKind().(type) {
	case *exprpb.Constant_BoolValue, *exprpb.Constant_NullValue:
		w.emit(start, end, semTypeKeyword, 0)
	case *exprpb.Constant_Int64Value, *exprpb.Constant_Uint64Value, *exprpb.Constant_DoubleValue:
		w.emit(start, end, semTypeNumber, 0)
	case *exprpb.Constant_StringValue, *exprpb.Constant_BytesValue:
		w.emit(start, end, semTypeString, 0)
	}
}

// walkSelect handles both plain member access (e.f) and the has() macro's
// test-only form, which cel-go represents as a SelectExpr with TestOnly
// set rather than as a call.
func (w *tokenWalker) walkSelect(sel *exprpb.Expr_Select, outerStart, outerEnd int) {
	operand := sel.GetOperand()
	field := sel.GetField()

	if sel.GetTestOnly() {
		// has(e.f): function token "has" at the outer start, then "(",
		// the receiver, ".", the field, and the closing ")".
		if strings.HasPrefix(w.source[outerStart:], "has") {
			w.emit(outerStart, outerStart+3, semTypeFunction, semModifierDefaultLibrary)
		}
		openParen := strings.IndexByte(w.source[outerStart:], '(')
		if openParen >= 0 {
			parenPos := outerStart + openParen
			w.emit(parenPos, parenPos+1, semTypePunctuation, 0)
		}
		w.walk(operand)
		if _, operandEnd, ok := w.span(operand); ok {
			if dot := strings.IndexByte(w.source[operandEnd:], '.'); dot >= 0 {
				dotPos := operandEnd + dot
				w.emit(dotPos, dotPos+1, semTypePunctuation, 0)
			}
		}
		fieldEnd := outerEnd - 1
		fieldStart := fieldEnd - len(field)
		w.emit(fieldStart, fieldEnd, semTypeVariable, 0)
		w.emit(fieldEnd, fieldEnd+1, semTypePunctuation, 0)
		return
	}

	w.walk(operand)
	if _, operandEnd, ok := w.span(operand); ok {
		if dot := strings.IndexByte(w.source[operandEnd:], '.'); dot >= 0 {
			dotPos := operandEnd + dot
			w.emit(dotPos, dotPos+1, semTypePunctuation, 0)
		}
	}
	fieldStart := outerEnd - len(field)
	w.emit(fieldStart, outerEnd, semTypeVariable, 0)
}

func (w *tokenWalker) walkCall(call *exprpb.Expr_Call, outerStart, outerEnd int) {
	function := call.GetFunction()
	args := call.GetArgs()

	if function == operators.Conditional && call.GetTarget() == nil && len(args) == 3 {
		w.walkTernary(args)
		return
	}

	if function == operators.Index && call.GetTarget() == nil && len(args) == 2 {
		w.walkIndex(args)
		return
	}

	if symbol, found := operators.FindReverse(function); found && symbol != "" && call.GetTarget() == nil {
		if len(args) == 1 {
			w.emit(outerStart, outerStart+len(symbol), semTypeOperator, 0)
			w.walk(args[0])
			return
		}
		if len(args) == 2 {
			w.walk(args[0])
			if _, leftEnd, ok := w.span(args[0]); ok {
				rightStart, _, rightOK := w.span(args[1])
				if rightOK {
					if opStart := findInGap(w.source, leftEnd, rightStart, symbol); opStart >= 0 {
						w.emit(opStart, opStart+len(symbol), semTypeOperator, 0)
					}
				}
			}
			w.walk(args[1])
			return
		}
	}

	if call.GetTarget() != nil {
		w.walkMethodCall(call, outerStart, outerEnd)
		return
	}

	w.walkFunctionCall(call, outerStart, outerEnd)
}

// walkIndex handles e[i]: operand subtree, "[" in the gap, index subtree,
// then the closing "]".
func (w *tokenWalker) walkIndex(args []*exprpb.Expr) {
	w.walk(args[0])
	operandEnd := -1
	if _, e, ok := w.span(args[0]); ok {
		operandEnd = e
	}
	if indexStart, _, ok := w.span(args[1]); ok && operandEnd >= 0 {
		if lb := findInGap(w.source, operandEnd, indexStart, "["); lb >= 0 {
			w.emit(lb, lb+1, semTypePunctuation, 0)
		}
	}
	w.walk(args[1])
	if _, indexEnd, ok := w.span(args[1]); ok {
		if rb := strings.IndexByte(w.source[indexEnd:], ']'); rb >= 0 {
			w.emit(indexEnd+rb, indexEnd+rb+1, semTypePunctuation, 0)
		}
	}
}

func (w *tokenWalker) walkTernary(args []*exprpb.Expr) {
	w.walk(args[0])
	condEnd := 0
	if _, e, ok := w.span(args[0]); ok {
		condEnd = e
	}
	thenStart, _, thenOK := w.span(args[1])
	if thenOK {
		if q := findInGap(w.source, condEnd, thenStart, "?"); q >= 0 {
			w.emit(q, q+1, semTypePunctuation, 0)
		}
	}
	w.walk(args[1])
	thenEnd := thenStart
	if _, e, ok := w.span(args[1]); ok {
		thenEnd = e
	}
	if elseStart, _, ok := w.span(args[2]); ok {
		if c := findInGap(w.source, thenEnd, elseStart, ":"); c >= 0 {
			w.emit(c, c+1, semTypePunctuation, 0)
		}
	}
	w.walk(args[2])
}

func (w *tokenWalker) walkMethodCall(call *exprpb.Expr_Call, outerStart, outerEnd int) {
	target := call.GetTarget()
	function := call.GetFunction()
	args := call.GetArgs()

	w.walk(target)
	targetEnd := outerStart
	if _, e, ok := w.span(target); ok {
		targetEnd = e
	}
	dotPos := -1
	nameStart := -1
	if idx := strings.IndexByte(w.source[targetEnd:], '.'); idx >= 0 {
		dotPos = targetEnd + idx
		afterDot := dotPos + 1
		if strings.HasPrefix(w.source[afterDot:], function) {
			nameStart = afterDot
		} else if found := strings.IndexByte(w.source[afterDot:], byte(function[0])); found >= 0 {
			nameStart = afterDot + found
		}
	}
	if dotPos >= 0 {
		w.emit(dotPos, dotPos+1, semTypePunctuation, 0)
	}
	modifiers := uint32(0)
	if w.isBuiltinFunction(function) {
		modifiers = semModifierDefaultLibrary
	}
	if nameStart >= 0 {
		w.emit(nameStart, nameStart+len(function), semTypeMethod, modifiers)
	}

	w.walkArgList(args, outerEnd)
}

func (w *tokenWalker) walkFunctionCall(call *exprpb.Expr_Call, outerStart, outerEnd int) {
	function := call.GetFunction()
	args := call.GetArgs()

	// The outer span starts at the callee name (see exprSpan); emit the
	// name token only when the text actually matches, since error
	// recovery can leave the span anchored elsewhere.
	if strings.HasPrefix(w.source[outerStart:], function) {
		modifiers := uint32(0)
		if w.isBuiltinFunction(function) {
			modifiers = semModifierDefaultLibrary
		}
		w.emit(outerStart, outerStart+len(function), semTypeFunction, modifiers)
	}

	w.walkArgList(args, outerEnd)
}

// walkArgList emits the parenthesis/comma punctuation and walks each
// argument, assuming the callee token has already been emitted just
// before the opening paren.
func (w *tokenWalker) walkArgList(args []*exprpb.Expr, outerEnd int) {
	if len(w.tokens) == 0 {
		return
	}
	last := w.tokens[len(w.tokens)-1]
	searchFrom := last.start + last.length
	if openParen := strings.IndexByte(w.source[searchFrom:], '('); openParen >= 0 {
		parenPos := searchFrom + openParen
		w.emit(parenPos, parenPos+1, semTypePunctuation, 0)
	}

	prevEnd := searchFrom
	for i, arg := range args {
		w.walk(arg)
		if i > 0 {
			if argStart, _, ok := w.span(arg); ok {
				if comma := findInGap(w.source, prevEnd, argStart, ","); comma >= 0 {
					w.emit(comma, comma+1, semTypePunctuation, 0)
				}
			}
		}
		if _, e, ok := w.span(arg); ok {
			prevEnd = e
		}
	}

	w.emit(outerEnd-1, outerEnd, semTypePunctuation, 0)
}

func (w *tokenWalker) walkList(list *exprpb.Expr_CreateList, outerStart, outerEnd int) {
	w.emit(outerStart, outerStart+1, semTypePunctuation, 0)
	prevEnd := outerStart + 1
	for i, elem := range list.GetElements() {
		if i > 0 {
			if elemStart, _, ok := w.span(elem); ok {
				if comma := findInGap(w.source, prevEnd, elemStart, ","); comma >= 0 {
					w.emit(comma, comma+1, semTypePunctuation, 0)
				}
			}
		}
		w.walk(elem)
		if _, e, ok := w.span(elem); ok {
			prevEnd = e
		}
	}
	w.emit(outerEnd-1, outerEnd, semTypePunctuation, 0)
}

func (w *tokenWalker) walkStruct(s *exprpb.Expr_CreateStruct, outerStart, outerEnd int) {
	typeName := s.GetMessageName()
	bodyStart := outerStart
	if typeName != "" {
		w.emit(outerStart, outerStart+len(typeName), semTypeVariable, 0)
		if brace := strings.IndexByte(w.source[outerStart+len(typeName):], '{'); brace >= 0 {
			bodyStart = outerStart + len(typeName) + brace
		}
	}
	w.emit(bodyStart, bodyStart+1, semTypePunctuation, 0)

	prevEnd := bodyStart + 1
	for i, entry := range s.GetEntries() {
		value := entry.GetValue()
		if i > 0 {
			if valueStart, _, ok := w.span(value); ok {
				if comma := findInGap(w.source, prevEnd, valueStart, ","); comma >= 0 {
					w.emit(comma, comma+1, semTypePunctuation, 0)
				}
			}
		}
		if mapKey, isMap := entry.GetKeyKind().(*exprpb.Expr_CreateStruct_Entry_MapKey); isMap {
			w.walk(mapKey.MapKey)
			if _, keyEnd, ok := w.span(mapKey.MapKey); ok {
				if valueStart, _, ok := w.span(value); ok {
					if colon := findInGap(w.source, keyEnd, valueStart, ":"); colon >= 0 {
						w.emit(colon, colon+1, semTypePunctuation, 0)
					}
				}
			}
		} else if fieldKey, isField := entry.GetKeyKind().(*exprpb.Expr_CreateStruct_Entry_FieldKey); isField {
			if valueStart, _, ok := w.span(value); ok {
				colonIdx := strings.LastIndex(w.source[prevEnd:valueStart], ":")
				if colonIdx >= 0 {
					fieldNameEnd := prevEnd + colonIdx
					fieldNameStart := fieldNameEnd - len(fieldKey.FieldKey)
					w.emit(fieldNameStart, fieldNameEnd, semTypeVariable, 0)
					w.emit(fieldNameEnd, fieldNameEnd+1, semTypePunctuation, 0)
				}
			}
		}
		w.walk(value)
		if _, e, ok := w.span(value); ok {
			prevEnd = e
		}
	}
	w.emit(outerEnd-1, outerEnd, semTypePunctuation, 0)
}

// findInGap searches for needle within source[from:to] (to == -1 means
// search to the end of source), returning its absolute byte offset or -1.
func findInGap(source string, from, to int, needle string) int {
	if from < 0 || from > len(source) {
		return -1
	}
	if to < 0 || to > len(source) {
		to = len(source)
	}
	if from > to {
		return -1
	}
	idx := strings.Index(source[from:to], needle)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// encodeSemanticTokens sorts raw tokens by start offset, drops any
// spanning multiple lines, and produces the delta-encoded protocol form.
func encodeSemanticTokens(tokens []rawToken, lines *lineIndex) *protocol.SemanticTokens {
	if len(tokens) == 0 {
		return nil
	}
	slices.SortFunc(tokens, func(a, b rawToken) int { return a.start - b.start })

	var data []uint32
	var prevLine, prevCol uint32
	for _, t := range tokens {
		startPos := lines.offsetToPosition(t.start)
		endPos := lines.offsetToPosition(t.start + t.length)
		if startPos.Line != endPos.Line {
			continue
		}
		deltaLine := startPos.Line - prevLine
		deltaCol := startPos.Character
		if deltaLine == 0 {
			deltaCol -= prevCol
		}
		length := endPos.Character - startPos.Character
		data = append(data, deltaLine, deltaCol, length, t.tokenType, t.modifiers)
		prevLine = startPos.Line
		prevCol = startPos.Character
	}
	if len(data) == 0 {
		return nil
	}
	return &protocol.SemanticTokens{Data: data}
}
