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

// This file provides byte offset <-> LSP position conversion.

package celsp

import (
	"sort"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// utf16Len returns the number of UTF-16 code units r encodes to.
func utf16Len(r rune) int {
	if utf16.IsSurrogate(r) || r > unicode.MaxRune {
		return -1
	}
	if r1, _ := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
		return 2
	}
	return 1
}

// lineIndex is a precomputed sorted list of line start byte offsets for a
// piece of text, used to convert between byte offsets and LSP positions
// (line, UTF-16 column). It is immutable for the lifetime of the text it
// indexes; a full replacement rebuilds a new one.
type lineIndex struct {
	source     string
	lineStarts []int
}

// newLineIndex scans text once and records the start offset of every line,
// always including offset zero.
func newLineIndex(source string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{source: source, lineStarts: starts}
}

// offsetToPosition converts a byte offset to an LSP position. Binary
// searches the line starts, then scans the located line accumulating
// UTF-16 lengths to find the column.
func (idx *lineIndex) offsetToPosition(offset int) protocol.Position {
	line := sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	lineStart := idx.lineStarts[line]
	lineEnd := len(idx.source)
	if line+1 < len(idx.lineStarts) {
		lineEnd = idx.lineStarts[line+1]
	}

	col := 0
	for i := lineStart; i < lineEnd && i < offset; {
		r, size := utf8.DecodeRuneInString(idx.source[i:])
		col += utf16Len(r)
		i += size
	}

	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

// positionToOffset converts an LSP position to a byte offset, returning
// false if the requested line is beyond the last line start.
func (idx *lineIndex) positionToOffset(position protocol.Position) (int, bool) {
	line := int(position.Line)
	if line >= len(idx.lineStarts) {
		return 0, false
	}

	lineStart := idx.lineStarts[line]
	lineEnd := len(idx.source)
	if line+1 < len(idx.lineStarts) {
		lineEnd = idx.lineStarts[line+1]
		// Exclude the trailing newline from the line's content range.
		if lineEnd > lineStart && idx.source[lineEnd-1] == '\n' {
			lineEnd--
		}
	}

	utf16Col := uint32(0)
	for i := lineStart; i < lineEnd; {
		if utf16Col >= position.Character {
			return i, true
		}
		r, size := utf8.DecodeRuneInString(idx.source[i:])
		utf16Col += uint32(utf16Len(r))
		i += size
	}

	return lineEnd, true
}

// spanToRange maps a half-open byte range to an LSP range via two
// independent offset lookups.
func (idx *lineIndex) spanToRange(start, end int) protocol.Range {
	return protocol.Range{
		Start: idx.offsetToPosition(start),
		End:   idx.offsetToPosition(end),
	}
}
