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

// This file wires the cobra CLI command that starts the language
// server, mirroring the teacher's cmd/buf/command/beta/lsp subcommand
// shape (pipe-or-stdio transport selection) as a standalone root
// command rather than a subcommand nested under a parent CLI.

package celsp

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const pipeFlagName = "pipe"

type serveFlags struct {
	pipePath string
}

func (f *serveFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(
		&f.pipePath,
		pipeFlagName,
		"",
		"path to a UNIX socket to listen on; uses stdio if not specified",
	)
}

// NewServeCommand constructs the `celsp serve` command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the language server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	flags.bind(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, flags *serveFlags) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	transport, err := dial(flags)
	if err != nil {
		return err
	}

	startDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	settings, settingsDir := discoverSettings(startDir, logger)
	registry := loadProtoRegistry(ctx, settings, settingsDir, logger)

	stream := jsonrpc2.NewStream(transport)
	conn := jsonrpc2.NewConn(stream)

	server := NewServer(conn, logger, settings, registry)
	conn.Go(ctx, protocol.ServerHandler(server, jsonrpc2.MethodNotFoundHandler))

	<-conn.Done()
	return conn.Err()
}

// dial opens a connection to the editor: a UNIX socket when --pipe is
// given, otherwise stdio.
func dial(flags *serveFlags) (io.ReadWriteCloser, error) {
	if flags.pipePath != "" {
		conn, err := net.Dial("unix", flags.pipePath)
		if err != nil {
			return nil, fmt.Errorf("could not open IPC socket %q: %w", flags.pipePath, err)
		}
		return conn, nil
	}
	return stdioReadWriteCloser{os.Stdin, os.Stdout}, nil
}

// stdioReadWriteCloser composes stdin/stdout into a single
// io.ReadWriteCloser; closing it is a no-op since the process owns
// neither stream's lifecycle.
type stdioReadWriteCloser struct {
	io.Reader
	io.Writer
}

func (stdioReadWriteCloser) Close() error { return nil }
