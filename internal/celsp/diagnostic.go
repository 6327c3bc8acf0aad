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

// This file turns parse/check errors into editor diagnostics.

package celsp

import "go.lsp.dev/protocol"

const diagnosticSource = "cel"

// diagnosticsForKind computes the full diagnostic list for a document,
// mapping region-local spans back to host coordinates for host documents.
func diagnosticsForKind(kind *documentKind) []protocol.Diagnostic {
	switch kind.tag {
	case kindCelDocument:
		return diagnosticsForDocumentState(kind.cel, kind.cel.lineIndex, nil)
	case kindHostDocument:
		var diags []protocol.Diagnostic
		for _, region := range kind.host.regions {
			diags = append(diags, diagnosticsForDocumentState(region.state, kind.host.lineIndex, region.mapper)...)
		}
		return diags
	default:
		return nil
	}
}

// diagnosticsForDocumentState builds diagnostics for a single
// documentState (either a pure-CEL document or one region), mapping
// spans through mapper (nil for pure-CEL documents) before indexing
// lines via lines.
func diagnosticsForDocumentState(state *documentState, lines *lineIndex, mapper *offsetMapper) []protocol.Diagnostic {
	var diags []protocol.Diagnostic

	for _, message := range state.parseErrors {
		// Parse errors have no reliable per-node span in this model; report
		// them at the start of the document/region.
		start, end := 0, 1
		if mapper != nil {
			start, end = mapper.spanToHost(start, end)
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    lines.spanToRange(start, end),
			Severity: protocol.DiagnosticSeverityError,
			Source:   diagnosticSource,
			Message:  message,
		})
	}

	for _, ce := range state.checkErrors {
		start, end := ce.start, ce.end
		if mapper != nil {
			start, end = mapper.spanToHost(start, end)
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    lines.spanToRange(start, end),
			Severity: protocol.DiagnosticSeverityError,
			Source:   diagnosticSource,
			Code:     ce.kind.diagnosticCode(),
			Message:  ce.message,
		})
	}

	return diags
}
