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

// This file defines per-document analysis state: the outcome of parsing
// and type-checking either a pure-CEL document or the regions of a host
// document.

package celsp

import (
	"strings"
	"unicode/utf8"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// documentState is the parse/check outcome for a pure-CEL document, or
// for a single region of a host document.
type documentState struct {
	source      string
	lineIndex   *lineIndex // nil for regions; regions use the host's line index
	parsedExpr  *exprpb.ParsedExpr
	checkedExpr *exprpb.CheckedExpr // nil if parsing failed or checking failed
	positions   map[int64]int32     // expr id -> rune offset, from SourceInfo
	parseErrors []string
	checkErrors []checkError
	env         *cel.Env
	variables   map[string]string // declared variable name -> display type, for completion
}

// checkError is a single type-checking failure with a span in CEL-local
// byte coordinates and a machine-readable kind used to pick a diagnostic
// code (§4.5) and a hover template (§4.6).
type checkError struct {
	start, end int
	kind       checkErrorKind
	message    string
}

type checkErrorKind int

const (
	checkErrorGeneric checkErrorKind = iota
	checkErrorUndeclaredReference
	checkErrorNoMatchingOverload
	checkErrorTypeMismatch
	checkErrorUndefinedField
	checkErrorHeterogeneousAggregate
	checkErrorNotAType
)

// newDocumentState parses and type-checks source with env. variables
// names the declared identifier completions available in env (settings
// variables, plus `this`/`rules`/`now` for protovalidate regions).
func newDocumentState(source string, env *cel.Env, variables map[string]string) *documentState {
	state := &documentState{source: source, env: env, variables: variables}

	ast, issues := env.Parse(source)
	if issues != nil {
		for _, issue := range issues.Errors() {
			state.parseErrors = append(state.parseErrors, issue.Message)
		}
	}
	if ast == nil {
		return state
	}

	parsedExpr, err := cel.AstToParsedExpr(ast)
	if err == nil {
		state.parsedExpr = parsedExpr
		state.positions = parsedExpr.GetSourceInfo().GetPositions()
	}

	checked, checkIssues := env.Check(ast)
	if checkIssues != nil {
		for _, issue := range checkIssues.Errors() {
			start := celLocationToByteOffset(source, issue.Location.Line(), issue.Location.Column())
			end := start + 1
			if state.parsedExpr != nil {
				if s, e, ok := reportedExprSpan(source, state.positions, state.parsedExpr.GetExpr(), issue.ExprID); ok {
					start, end = s, e
				}
			}
			state.checkErrors = append(state.checkErrors, checkError{
				start:   start,
				end:     end,
				kind:    classifyCheckError(issue.Message),
				message: issue.Message,
			})
		}
	}
	if checked != nil {
		if checkedExpr, err := cel.AstToCheckedExpr(checked); err == nil {
			state.checkedExpr = checkedExpr
		}
	}

	return state
}

// reportedExprSpan widens a check error to the span of the expression it
// was reported on; cel-go error locations carry only a start point.
func reportedExprSpan(source string, positions map[int64]int32, root *exprpb.Expr, exprID int64) (int, int, bool) {
	if root == nil || exprID == 0 {
		return 0, 0, false
	}
	node := findExprByID(root, exprID)
	if node == nil {
		return 0, 0, false
	}
	return exprSpan(source, positions, node)
}

// celLocationToByteOffset converts a cel-go 1-based line / 0-based rune
// column location into a byte offset into source.
func celLocationToByteOffset(source string, line, col int) int {
	currentLine := 1
	i := 0
	for currentLine < line && i < len(source) {
		if source[i] == '\n' {
			currentLine++
		}
		i++
	}
	remaining := col
	for remaining > 0 && i < len(source) && source[i] != '\n' {
		_, size := utf8.DecodeRuneInString(source[i:])
		i += size
		remaining--
	}
	return i
}

func classifyCheckError(message string) checkErrorKind {
	switch {
	case strings.Contains(message, "undeclared reference"):
		return checkErrorUndeclaredReference
	case strings.Contains(message, "found no matching overload"):
		return checkErrorNoMatchingOverload
	case strings.Contains(message, "expected type") && strings.Contains(message, "but found"):
		return checkErrorTypeMismatch
	case strings.Contains(message, "not assignable"):
		return checkErrorTypeMismatch
	case strings.Contains(message, "undefined field"):
		return checkErrorUndefinedField
	case strings.Contains(message, "heterogeneous"):
		return checkErrorHeterogeneousAggregate
	case strings.Contains(message, "not a type"):
		return checkErrorNotAType
	default:
		return checkErrorGeneric
	}
}

// diagnosticCode returns the fixed machine-readable code for a check
// error kind, per spec.md §4.5.
func (k checkErrorKind) diagnosticCode() string {
	switch k {
	case checkErrorUndeclaredReference:
		return "undeclared-reference"
	case checkErrorNoMatchingOverload:
		return "no-matching-overload"
	case checkErrorTypeMismatch:
		return "type-mismatch"
	case checkErrorUndefinedField:
		return "undefined-field"
	case checkErrorHeterogeneousAggregate:
		return "heterogeneous-aggregate"
	case checkErrorNotAType:
		return "not-a-type"
	default:
		return "check-error"
	}
}

// regionState bundles a CEL region with its offset mapper, its
// protovalidate context, and its parse/check outcome.
type regionState struct {
	source  string
	mapper  *offsetMapper
	context protovalidateContext
	state   *documentState
}

func (r *regionState) containsHostOffset(hostOffset int) bool {
	return r.mapper.containsHostOffset(hostOffset, len(r.source))
}

// hostDocumentState is the state of a .proto document: the full host
// text's line index and its extracted, independently parsed regions.
type hostDocumentState struct {
	lineIndex *lineIndex
	regions   []*regionState
}

// regionAtOffset finds the region containing the given host document
// byte offset, or nil if none does.
func (h *hostDocumentState) regionAtOffset(hostOffset int) *regionState {
	for _, r := range h.regions {
		if r.containsHostOffset(hostOffset) {
			return r
		}
	}
	return nil
}

// documentKindTag distinguishes the two documentKind variants.
type documentKindTag int

const (
	kindCelDocument documentKindTag = iota
	kindHostDocument
)

// documentKind is the sum Cel(documentState) | Host(hostDocumentState)
// stored by the document store. Exactly one of cel/host is set,
// determined by tag.
type documentKind struct {
	tag     documentKindTag
	version int32
	cel     *documentState
	host    *hostDocumentState
}
