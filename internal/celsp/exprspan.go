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

// This file locates the byte span of an AST node within its CEL source.
// CEL-go's SourceInfo records only each subexpression's start position (in
// runes, not bytes); the end of the span is found by lexing forward from
// that point according to the node's shape, mirroring how a hand-rolled
// CEL-aware LSP must do it absent a full token stream.

package celsp

import (
	"strings"
	"unicode/utf8"

	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// runeOffsetToByteOffset converts a rune offset (as recorded by cel-go's
// SourceInfo.Positions) into a byte offset into source.
func runeOffsetToByteOffset(source string, runeOffset int32) int {
	if runeOffset <= 0 {
		return 0
	}
	count := int32(0)
	for i := range source {
		if count == runeOffset {
			return i
		}
		count++
	}
	return len(source)
}

// exprStart returns the CEL-local byte offset of expr's start position, or
// false if unknown.
func exprStart(source string, positions map[int64]int32, expr *exprpb.Expr) (int, bool) {
	if expr == nil {
		return 0, false
	}
	rOff, ok := positions[expr.GetId()]
	if !ok {
		return 0, false
	}
	return runeOffsetToByteOffset(source, rOff), true
}

// exprSpan computes a best-effort [start, end) byte span for expr within
// source, lexing forward from its recorded start position according to
// its node shape.
func exprSpan(source string, positions map[int64]int32, expr *exprpb.Expr) (start, end int, ok bool) {
	start, ok = exprStart(source, positions, expr)
	if !ok {
		return 0, 0, false
	}

	switch kind := expr.GetExprKind().(type) {
	case *exprpb.Expr_ConstExpr:
		end = lexLiteralEnd(source, start)
	case *exprpb.Expr_IdentExpr:
		end = start + len(kind.IdentExpr.GetName())
	case *exprpb.Expr_SelectExpr:
		sel := kind.SelectExpr
		if sel.GetTestOnly() {
			// The recorded position is the has() macro call's open paren;
			// widen to cover the whole has(...) text.
			if start >= len("has") && strings.HasSuffix(source[:start], "has") &&
				start < len(source) && source[start] == '(' {
				if closeEnd := lexBracketedEnd(source, start, '(', ')'); closeEnd > start {
					return start - len("has"), closeEnd, true
				}
			}
		}
		operandStart, operandEnd, operandOK := exprSpan(source, positions, sel.GetOperand())
		if !operandOK {
			operandEnd = start
		} else {
			start = operandStart
		}
		fieldStart := findAfter(source, operandEnd, sel.GetField())
		if fieldStart == -1 {
			end = operandEnd
		} else {
			end = fieldStart + len(sel.GetField())
		}
	case *exprpb.Expr_CallExpr:
		call := kind.CallExpr
		fn := call.GetFunction()
		callStart := start
		switch {
		case call.GetTarget() != nil:
			if targetStart, _, targetOK := exprSpan(source, positions, call.GetTarget()); targetOK {
				callStart = targetStart
			}
		case strings.HasPrefix(fn, "_") || strings.Contains(fn, "@"):
			// Operator call: the recorded position is the operator token;
			// widen to the first operand when there is one to the left.
			if args := call.GetArgs(); len(args) > 1 {
				if argStart, _, argOK := exprSpan(source, positions, args[0]); argOK && argStart < callStart {
					callStart = argStart
				}
			}
		default:
			// Global call: the recorded position is the open paren; the
			// callee's name sits immediately before it.
			if callStart >= len(fn) && strings.HasSuffix(source[:callStart], fn) {
				callStart -= len(fn)
			}
		}
		start = callStart
		end = lexCallEnd(source, start, call.GetArgs(), positions)
	case *exprpb.Expr_ListExpr:
		end = lexBracketedEnd(source, start, '[', ']')
	case *exprpb.Expr_StructExpr:
		end = lexBracketedEnd(source, start, '{', '}')
		if end == start {
			end = lexBracketedAfterNameEnd(source, start)
		}
	case *exprpb.Expr_ComprehensionExpr:
		// Comprehensions are synthetic (macro-expanded); approximate the
		// span as running from the recorded position to the end of the
		// result subexpression. The macro call text is not consulted.
		comp := kind.ComprehensionExpr
		_, resultEnd, resultOK := exprSpan(source, positions, comp.GetResult())
		if resultOK {
			end = resultEnd
		} else {
			end = start + 1
		}
	default:
		end = start + 1
	}

	if end <= start {
		end = start + 1
	}
	if end > len(source) {
		end = len(source)
	}
	return start, end, true
}

// lexLiteralEnd lexes a CEL literal (string, bytes, number, bool, null)
// starting at start and returns its end offset.
func lexLiteralEnd(source string, start int) int {
	if start >= len(source) {
		return start
	}
	rest := source[start:]
	switch {
	case strings.HasPrefix(rest, "true"):
		return start + len("true")
	case strings.HasPrefix(rest, "false"):
		return start + len("false")
	case strings.HasPrefix(rest, "null"):
		return start + len("null")
	}

	i := start
	// Raw/bytes prefixes: r, b, rb, br (case-insensitive single letters).
	for i < len(source) && (source[i] == 'r' || source[i] == 'R' || source[i] == 'b' || source[i] == 'B') {
		i++
	}
	if i < len(source) && (source[i] == '"' || source[i] == '\'') {
		return lexStringEnd(source, i)
	}

	// Numeric literal.
	i = start
	for i < len(source) {
		c := source[i]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == 'u' || c == 'U' ||
			((c == '+' || c == '-') && i > start && (source[i-1] == 'e' || source[i-1] == 'E')) {
			i++
			continue
		}
		break
	}
	if i == start {
		return start + 1
	}
	return i
}

// lexStringEnd lexes a quoted string/bytes literal starting at the
// opening quote at offset quoteStart, honouring backslash escapes
// (including triple-quoted forms), and returns the offset just past the
// closing quote.
func lexStringEnd(source string, quoteStart int) int {
	quote := source[quoteStart]
	triple := strings.HasPrefix(source[quoteStart:], strings.Repeat(string(quote), 3))
	delim := string(quote)
	if triple {
		delim = strings.Repeat(string(quote), 3)
	}
	i := quoteStart + len(delim)
	for i < len(source) {
		if source[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(source[i:], delim) {
			return i + len(delim)
		}
		_, size := utf8.DecodeRuneInString(source[i:])
		i += size
	}
	return len(source)
}

// findAfter finds the byte offset of the first occurrence of needle at
// or after from, anywhere in the rest of source; -1 if needle is empty
// or does not occur.
func findAfter(source string, from int, needle string) int {
	if needle == "" {
		return -1
	}
	idx := strings.Index(source[from:], needle)
	if idx == -1 {
		return -1
	}
	return from + idx
}

// lexCallEnd finds the end of a call expression's argument list: the
// closing parenthesis matching the first `(` found at or after start.
// Operator calls have no parenthesis of their own; they end at the last
// argument.
func lexCallEnd(source string, start int, args []*exprpb.Expr, positions map[int64]int32) int {
	searchFrom := start
	if len(args) > 0 {
		if _, lastEnd, ok := exprSpan(source, positions, args[len(args)-1]); ok {
			searchFrom = lastEnd
		}
	}
	if end := lexBracketedEnd(source, start, '(', ')'); end > start && end >= searchFrom {
		return end
	}
	return searchFrom
}

// lexBracketedEnd finds the byte offset just past the closing bracket
// matching the open bracket found at or after start, honouring nesting.
func lexBracketedEnd(source string, start int, open, close byte) int {
	openIdx := strings.IndexByte(source[start:], open)
	if openIdx == -1 {
		return start
	}
	depth := 0
	i := start + openIdx
	for i < len(source) {
		switch source[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(source)
}

// lexBracketedAfterNameEnd handles struct literals whose type name
// precedes the `{`, e.g. `T{a: x}`; searches forward past the type name
// for the first `{`.
func lexBracketedAfterNameEnd(source string, start int) int {
	return lexBracketedEnd(source, start, '{', '}')
}
