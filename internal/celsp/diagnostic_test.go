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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestDiagnosticsForKindCelDocument(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "nonexistent_variable", 1)

	diags := diagnosticsForKind(kind)
	require.Len(t, diags, 1)
	assert.Equal(t, protocol.DiagnosticSeverityError, diags[0].Severity)
	assert.Equal(t, diagnosticSource, diags[0].Source)
	assert.Equal(t, "undeclared-reference", diags[0].Code)
}

func TestDiagnosticsForKindHostDocumentMapsSpanToHost(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t)
	store := newDocumentStore(Settings{}, registry)

	// The message is named "U" so the extractor's enclosing-message
	// heuristic and the registry (which declares test.U) agree.
	source := `message U {
  option (buf.validate.message).cel = {
    expression: "has(this.nonexistent)"
  };
}
`
	kind := store.open("file:///test.proto", source, 1)
	require.Equal(t, kindHostDocument, kind.tag)
	require.Len(t, kind.host.regions, 1)

	diags := diagnosticsForKind(kind)
	require.Len(t, diags, 1)
	assert.Equal(t, "undefined-field", diags[0].Code)

	// The diagnostic range covers the full membership test inside the
	// host's quoted string.
	region := kind.host.regions[0]
	require.NotEmpty(t, region.state.checkErrors)
	hostStart, hostEnd := region.mapper.spanToHost(region.state.checkErrors[0].start, region.state.checkErrors[0].end)
	assert.Equal(t, "has(this.nonexistent)", source[hostStart:hostEnd])
	assert.Equal(t, kind.host.lineIndex.spanToRange(hostStart, hostEnd), diags[0].Range)
}

func TestDiagnosticsForKindNoErrors(t *testing.T) {
	t.Parallel()

	store := newDocumentStore(Settings{}, nil)
	kind := store.open("file:///scratch.cel", "1 + 1", 1)
	assert.Empty(t, diagnosticsForKind(kind))
}
