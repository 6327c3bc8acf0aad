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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServeCommandShape(t *testing.T) {
	t.Parallel()

	cmd := NewServeCommand()
	assert.Equal(t, "serve", cmd.Use)

	flag := cmd.Flags().Lookup(pipeFlagName)
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)

	assert.NoError(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"unexpected"}))
}

func TestDialWithBadPipePathErrors(t *testing.T) {
	t.Parallel()

	_, err := dial(&serveFlags{pipePath: filepath.Join(t.TempDir(), "no-such-socket")})
	assert.Error(t, err)
}

func TestDialDefaultsToStdio(t *testing.T) {
	t.Parallel()

	rwc, err := dial(&serveFlags{})
	require.NoError(t, err)
	require.NotNil(t, rwc)
	assert.NoError(t, rwc.Close())
}

func TestStdioReadWriteCloserCloseIsNoop(t *testing.T) {
	t.Parallel()

	rwc := stdioReadWriteCloser{os.Stdin, os.Stdout}
	assert.NoError(t, rwc.Close())
}
