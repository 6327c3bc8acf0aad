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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	s := NewServer(nil, zap.NewNop(), Settings{}, nil)
	srv, ok := s.(*server)
	require.True(t, ok)
	return srv
}

func TestServerInitializeAdvertisesCapabilities(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	result, err := srv.Initialize(context.Background(), &protocol.InitializeParams{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, true, result.Capabilities.HoverProvider)
	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.Equal(t, []string{"."}, result.Capabilities.CompletionProvider.TriggerCharacters)
	require.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, "celsp", result.ServerInfo.Name)
}

func TestServerDidOpenThenHoverAndCompletionAndSemanticTokens(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///scratch.cel"

	err := srv.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "1 + 1", Version: 1},
	})
	require.NoError(t, err)

	hover, err := srv.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover) // "1" is a constant with no declared-type or builtin hover text

	completions, err := srv.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, completions)

	tokens, err := srv.SemanticTokensFull(ctx, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, tokens.Data)
}

func TestServerDidChangeUsesLastContentChange(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///scratch.cel"

	require.NoError(t, srv.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "1 + 1", Version: 1},
	}))

	err := srv.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: "nonexistent_variable"},
		},
	})
	require.NoError(t, err)

	kind := srv.store.get(uri)
	require.NotNil(t, kind)
	diags := diagnosticsForKind(kind)
	require.Len(t, diags, 1)
	assert.Equal(t, "undeclared-reference", diags[0].Code)
}

func TestServerDidChangeNoContentChangesIsNoop(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///scratch.cel"

	require.NoError(t, srv.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "1 + 1", Version: 1},
	}))

	err := srv.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
	})
	require.NoError(t, err)

	kind := srv.store.get(uri)
	require.NotNil(t, kind)
	assert.Equal(t, int32(1), kind.version) // unchanged: the no-op returned before store.open
}

func TestServerDidCloseRemovesDocument(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///scratch.cel"

	require.NoError(t, srv.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "1 + 1", Version: 1},
	}))
	require.NotNil(t, srv.store.get(uri))

	err := srv.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	assert.Nil(t, srv.store.get(uri))
}

func TestServerCompletionWithNoSuggestionsReturnsNil(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///scratch.cel"

	require.NoError(t, srv.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "zzzznosuchprefix", Version: 1},
	}))

	completions, err := srv.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 16},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, completions)
}

func TestServerHoverAndCompletionOnUnopenedDocumentReturnNil(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()
	const uri = "file:///never-opened.cel"

	hover, err := srv.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)

	completions, err := srv.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, completions)
}

func TestServerLifecycleNoopMethods(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()

	assert.NoError(t, srv.Initialized(ctx, &protocol.InitializedParams{}))
	assert.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, srv.Exit(ctx))
	assert.NoError(t, srv.SetTrace(ctx, &protocol.SetTraceParams{}))
}
