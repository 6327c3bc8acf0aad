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

// This file carves embedded CEL expressions out of .proto host documents
// under protovalidate annotations.

package celsp

import (
	"regexp"
)

// protovalidateContextKind tags which kind of protovalidate annotation an
// extracted region came from; this determines the type of `this`.
type protovalidateContextKind int

const (
	contextField protovalidateContextKind = iota
	contextMessage
	contextPredefined
)

// protovalidateContext determines the type of the conventional `this`
// variable for an embedded expression.
type protovalidateContext struct {
	kind        protovalidateContextKind
	messageType string // may be empty
	fieldName   string // may be empty; field context only
	fieldType   string // may be empty; field context only
}

// thisType resolves the CEL type of `this` for this context, mapping
// proto primitives to CEL primitives and falling back to dyn.
func (c protovalidateContext) thisType() celTypeSpec {
	switch c.kind {
	case contextField:
		if c.fieldType == "" {
			return dynType()
		}
		return protoFieldTypeToCEL(c.fieldType)
	case contextMessage:
		if c.messageType == "" {
			return dynType()
		}
		return messageType(c.messageType)
	default: // contextPredefined
		return dynType()
	}
}

var protovalidatePatterns = []struct {
	re   *regexp.Regexp
	kind protovalidateContextKind
}{
	{regexp.MustCompile(`\(\s*buf\.validate\.field\s*\)\s*\.cel\s*=\s*\{`), contextField},
	{regexp.MustCompile(`\(\s*buf\.validate\.message\s*\)\s*\.cel\s*=\s*\{`), contextMessage},
	{regexp.MustCompile(`\(\s*buf\.validate\.predefined\s*\)\s*\.cel\s*=\s*\{`), contextPredefined},
}

var expressionPattern = regexp.MustCompile(`expression\s*:\s*`)
var fieldDeclPattern = regexp.MustCompile(`^\s*(repeated\s+)?(\w[\w.]*)\s+(\w+)\s*=\s*\d+`)
var messageDeclPattern = regexp.MustCompile(`message\s+(\w+)\s*\{`)

// extractedRegion is one CEL region carved from a host document, prior to
// being parsed and type-checked.
type extractedRegion struct {
	source      string
	hostOffset  int
	adjustments []escapeAdjustment
	context     protovalidateContext
}

// extractCELRegions scans a .proto host text for protovalidate CEL
// annotations and returns every region found, in the order their opening
// quotes occur in the text.
func extractCELRegions(source string) []extractedRegion {
	commentRanges := findCommentRanges(source)

	var regions []extractedRegion
	for _, pattern := range protovalidatePatterns {
		for _, loc := range pattern.re.FindAllStringIndex(source, -1) {
			matchStart := loc[0]
			if isInComment(matchStart, commentRanges) {
				continue
			}
			openBrace := loc[1] - 1
			closeBrace, ok := findMatchingBrace(source, openBrace)
			if !ok {
				continue
			}

			block := source[openBrace:closeBrace]
			exprLoc := expressionPattern.FindStringIndex(block)
			if exprLoc == nil {
				continue
			}
			quoteSearchStart := openBrace + exprLoc[1]
			quoteOffset := indexByte(source, quoteSearchStart, closeBrace, '"')
			if quoteOffset == -1 {
				continue
			}

			region, ok := extractStringLiteral(source, quoteOffset+1)
			if !ok {
				continue
			}

			context := deriveContext(source, matchStart, pattern.kind)
			region.context = context
			regions = append(regions, region)
		}
	}

	// Sort by the order opening quotes occur in the host text.
	for i := 1; i < len(regions); i++ {
		j := i
		for j > 0 && regions[j-1].hostOffset > regions[j].hostOffset {
			regions[j-1], regions[j] = regions[j], regions[j-1]
			j--
		}
	}
	return regions
}

func indexByte(s string, start, end int, b byte) int {
	for i := start; i < end && i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// findMatchingBrace finds the byte offset of the `}` matching the `{` at
// openPos, honouring string/escape state so braces embedded in string
// literals inside the block don't confuse the balance count.
func findMatchingBrace(source string, openPos int) (int, bool) {
	depth := 0
	inString := false
	escapeNext := false
	for i := openPos; i < len(source); i++ {
		c := source[i]
		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case c == '\\':
				escapeNext = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// extractStringLiteral walks a string literal one byte at a time starting
// at contentStart (the byte just after the opening quote), decoding the
// proto escape set and recording escape adjustments. Returns false for
// unclosed strings.
func extractStringLiteral(source string, contentStart int) (extractedRegion, bool) {
	var decoded []byte
	var adjustments []escapeAdjustment
	cumulative := 0

	i := contentStart
	for i < len(source) {
		c := source[i]
		if c == '"' {
			return extractedRegion{
				source:      string(decoded),
				hostOffset:  contentStart,
				adjustments: adjustments,
			}, true
		}
		if c == '\\' && i+1 < len(source) {
			next := source[i+1]
			var decodedChar byte
			switch next {
			case 'n':
				decodedChar = '\n'
			case 't':
				decodedChar = '\t'
			case 'r':
				decodedChar = '\r'
			case '\\':
				decodedChar = '\\'
			case '"':
				decodedChar = '"'
			case '\'':
				decodedChar = '\''
			case '0':
				decodedChar = 0
			default:
				// Unknown escape: emit the escaped byte verbatim. Lossy
				// for non-standard escapes (see design notes).
				decodedChar = next
			}
			decoded = append(decoded, decodedChar)
			cumulative++
			adjustments = append(adjustments, escapeAdjustment{
				celOffset:      len(decoded),
				extraHostBytes: cumulative,
			})
			i += 2
			continue
		}
		decoded = append(decoded, c)
		i++
	}
	return extractedRegion{}, false
}

// deriveContext computes the Protovalidate Context for a match of the
// given kind starting at matchStart.
func deriveContext(source string, matchStart int, kind protovalidateContextKind) protovalidateContext {
	switch kind {
	case contextField:
		messageType, fieldName, fieldType := extractFieldContext(source, matchStart)
		return protovalidateContext{kind: contextField, messageType: messageType, fieldName: fieldName, fieldType: fieldType}
	case contextMessage:
		return protovalidateContext{kind: contextMessage, messageType: extractMessageContext(source, matchStart)}
	default:
		return protovalidateContext{kind: contextPredefined}
	}
}

// extractFieldContext applies a heuristic one-line regex to the field
// declaration line containing matchStart, and finds the innermost
// enclosing message declared before it.
func extractFieldContext(source string, matchStart int) (messageType, fieldName, fieldType string) {
	lineStart := matchStart
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := matchStart
	for lineEnd < len(source) && source[lineEnd] != '\n' {
		lineEnd++
	}
	line := source[lineStart:lineEnd]

	if m := fieldDeclPattern.FindStringSubmatch(line); m != nil {
		fieldType = m[2]
		if m[1] != "" {
			fieldType = "repeated " + fieldType
		}
		fieldName = m[3]
	}
	messageType = extractMessageContext(source, matchStart)
	return messageType, fieldName, fieldType
}

// extractMessageContext finds the innermost message enclosing position,
// by taking the last `message Name {` declared at or before position.
func extractMessageContext(source string, position int) string {
	before := source[:position]
	matches := messageDeclPattern.FindAllStringSubmatch(before, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// findCommentRanges scans source once, tracking in-string state and flat
// (non-nested) `//` and `/* */` comment forms, returning half-open byte
// ranges that are comment bytes.
func findCommentRanges(source string) [][2]int {
	var ranges [][2]int
	inString := false
	escapeNext := false

	i := 0
	for i < len(source) {
		c := source[i]
		if inString {
			switch {
			case escapeNext:
				escapeNext = false
				i++
			case c == '\\':
				escapeNext = true
				i++
			case c == '"':
				inString = false
				i++
			default:
				i++
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			i++
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			start := i
			for i < len(source) && source[i] != '\n' {
				i++
			}
			ranges = append(ranges, [2]int{start, i})
		case c == '/' && i+1 < len(source) && source[i+1] == '*':
			start := i
			i += 2
			for i+1 < len(source) && !(source[i] == '*' && source[i+1] == '/') {
				i++
			}
			if i+1 < len(source) {
				i += 2
			} else {
				i = len(source)
			}
			ranges = append(ranges, [2]int{start, i})
		default:
			i++
		}
	}
	return ranges
}

func isInComment(offset int, ranges [][2]int) bool {
	for _, r := range ranges {
		if offset >= r[0] && offset < r[1] {
			return true
		}
	}
	return false
}
