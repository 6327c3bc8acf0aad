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

// This file implements the bidirectional byte-coordinate map between a CEL
// region's decoded source and the host document it was carved from.

package celsp

// escapeAdjustment records that, at and after cel_offset, cel_offset bytes
// in the decoded region correspond to cel_offset+extraHostBytes host bytes,
// due to proto escape sequences (e.g. `\"` decoding to one byte) consuming
// more host bytes than they produce region bytes.
type escapeAdjustment struct {
	celOffset      int
	extraHostBytes int
}

// offsetMapper relates CEL-local byte offsets within a region's decoded
// source to byte offsets in the host document the region was extracted
// from. hostOffset is the host byte position at which decoded content
// begins (just past the opening quote). adjustments is strictly increasing
// by celOffset.
type offsetMapper struct {
	hostOffset  int
	adjustments []escapeAdjustment
}

func newOffsetMapper(hostOffset int, adjustments []escapeAdjustment) *offsetMapper {
	return &offsetMapper{hostOffset: hostOffset, adjustments: adjustments}
}

// adjustmentAt returns A(c): the extraHostBytes of the last adjustment
// entry with celOffset <= c, or zero if none.
func (m *offsetMapper) adjustmentAt(c int) int {
	adjustment := 0
	for _, a := range m.adjustments {
		if c >= a.celOffset {
			adjustment = a.extraHostBytes
		} else {
			break
		}
	}
	return adjustment
}

// toHost maps a CEL-local byte offset to its host byte offset.
func (m *offsetMapper) toHost(c int) int {
	return m.hostOffset + c + m.adjustmentAt(c)
}

// hostLength returns the number of host bytes a region of the given
// CEL-local length occupies.
func (m *offsetMapper) hostLength(celLength int) int {
	return celLength + m.adjustmentAt(celLength)
}

// hostToCel is the inverse of toHost: the largest c such that
// toHost(c) <= h. celLength bounds the search to the region's own size.
func (m *offsetMapper) hostToCel(h int, celLength int) int {
	lo, hi := 0, celLength
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if m.toHost(mid) <= h {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// spanToHost maps a half-open CEL-local byte range to a host byte range.
func (m *offsetMapper) spanToHost(start, end int) (int, int) {
	return m.toHost(start), m.toHost(end)
}

// containsHostOffset reports whether h falls within the region's
// occupied host bytes, inclusive of the upper bound: a cursor positioned
// immediately after the last CEL character (typically just before the
// closing quote) counts as inside.
func (m *offsetMapper) containsHostOffset(h int, celLength int) bool {
	start := m.hostOffset
	end := start + m.hostLength(celLength)
	return h >= start && h <= end
}
