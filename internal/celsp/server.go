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

// This file implements the protocol.Server that wires the document
// store and the diagnostic/hover/completion/semantic-token engines to
// the editor's jsonrpc2 connection.

package celsp

import (
	"context"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// NewServer returns a protocol.Server backed by a document store built
// from settings and registry. jsonrpc2Conn is used only to publish
// diagnostics notifications; it may be nil in tests.
func NewServer(jsonrpc2Conn jsonrpc2.Conn, logger *zap.Logger, settings Settings, registry *protoRegistry) protocol.Server {
	return &server{
		jsonrpc2Conn: jsonrpc2Conn,
		logger:       logger,
		store:        newDocumentStore(settings, registry),
	}
}

var _ protocol.Server = (*server)(nil)

type server struct {
	nopServer

	jsonrpc2Conn jsonrpc2.Conn
	logger       *zap.Logger
	store        *documentStore
}

// semanticTokensLegend and semanticTokensOptions stand in for
// protocol.SemanticTokensOptions, which does not expose a legend field;
// they marshal to the same JSON shape the client expects.
type semanticTokensLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

type semanticTokensOptions struct {
	Legend semanticTokensLegend `json:"legend"`
	Full   bool                 `json:"full"`
}

func (s *server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"."},
			},
			SemanticTokensProvider: &semanticTokensOptions{
				Legend: semanticTokensLegend{
					TokenTypes:     semanticTokenTypeLegend,
					TokenModifiers: semanticTokenModifierLegend,
				},
				Full: true,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "celsp"},
	}, nil
}

func (s *server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return nil
}

func (s *server) Exit(ctx context.Context) error {
	return nil
}

func (s *server) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	ctx = withRequestID(ctx)
	uri := params.TextDocument.URI
	defer s.store.lockURI(ctx, uri)()

	kind := s.store.open(uri, params.TextDocument.Text, params.TextDocument.Version)
	return s.publishDiagnostics(ctx, uri, kind)
}

func (s *server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	ctx = withRequestID(ctx)
	uri := params.TextDocument.URI
	defer s.store.lockURI(ctx, uri)()

	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full-text sync only (§6): the single change event carries the
	// entire new document text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	kind := s.store.open(uri, text, params.TextDocument.Version)
	return s.publishDiagnostics(ctx, uri, kind)
}

func (s *server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	ctx = withRequestID(ctx)
	uri := params.TextDocument.URI
	defer s.store.lockURI(ctx, uri)()

	s.store.close(uri)
	return s.notifyDiagnostics(ctx, uri, 0, []protocol.Diagnostic{})
}

func (s *server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	kind := s.store.get(params.TextDocument.URI)
	if kind == nil {
		return nil, nil
	}
	return hoverForKind(kind, params.Position), nil
}

func (s *server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	kind := s.store.get(params.TextDocument.URI)
	if kind == nil {
		return nil, nil
	}
	items := completionsForKind(kind, params.Position, s.store.registry)
	if len(items) == 0 {
		// Let the editor fall back to its own default suggestions.
		return nil, nil
	}
	return &protocol.CompletionList{Items: items}, nil
}

func (s *server) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	kind := s.store.get(params.TextDocument.URI)
	if kind == nil {
		return nil, nil
	}
	return semanticTokensForKind(kind), nil
}

// publishDiagnostics renders and sends the diagnostics for kind, tagged
// with its version so the editor may drop stale publications (§5).
func (s *server) publishDiagnostics(ctx context.Context, uri protocol.URI, kind *documentKind) error {
	diagnostics := diagnosticsForKind(kind)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	return s.notifyDiagnostics(ctx, uri, kind.version, diagnostics)
}

func (s *server) notifyDiagnostics(ctx context.Context, uri protocol.URI, version int32, diagnostics []protocol.Diagnostic) error {
	if s.jsonrpc2Conn == nil {
		return nil
	}
	return s.jsonrpc2Conn.Notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(version),
		Diagnostics: diagnostics,
	})
}
