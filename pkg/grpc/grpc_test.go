// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package grpc_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	sgrpc "github.com/securityd/securityd/pkg/grpc"
	"github.com/securityd/securityd/pkg/log"
)

func TestTarget(t *testing.T) {
	assert.Equal(t, "unix:///run/securityd.sock", sgrpc.Target("/run/securityd.sock"))
	assert.Equal(t, "passthrough:///127.0.0.1:3030", sgrpc.Target("127.0.0.1:3030"))
}

func TestLogIDServerInterceptor(t *testing.T) {
	interceptor := sgrpc.LogIDServerInterceptor()
	var logger log.Logger
	_, err := interceptor(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/securityd.v1.Security/Evaluate"},
		func(ctx context.Context, _ any) (any, error) {
			logger = log.FromCtx(ctx)
			return nil, nil
		},
	)
	require.NoError(t, err)
	assert.NotEqual(t, log.Root(), logger)
}

func TestPeerCredentials(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("peer credentials are only reported on linux")
	}
	l, err := sgrpc.Listen(filepath.Join(t.TempDir(), "s.sock"))
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	client, err := net.Dial("unix", l.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	server, ok := <-accepted
	require.True(t, ok)
	defer server.Close()

	_, info, err := sgrpc.PeerCredentials().ServerHandshake(server)
	require.NoError(t, err)
	ctx := peer.NewContext(context.Background(), &peer.Peer{AuthInfo: info})
	cred, ok := sgrpc.PeerCredFromContext(ctx)
	require.True(t, ok)
	assert.EqualValues(t, os.Getuid(), cred.UID)
	assert.EqualValues(t, os.Getgid(), cred.GID)
	assert.EqualValues(t, os.Getpid(), cred.PID)
}

func TestPeerCredentialsTCP(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	_, info, err := sgrpc.PeerCredentials().ServerHandshake(a)
	require.NoError(t, err)
	ctx := peer.NewContext(context.Background(), &peer.Peer{AuthInfo: info})
	_, ok := sgrpc.PeerCredFromContext(ctx)
	assert.False(t, ok)
}

func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	l, err := sgrpc.Listen(path)
	require.NoError(t, err)
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, l.Close())
	require.FileExists(t, path)

	l, err = sgrpc.Listen(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestListenKeepsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-socket")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
	_, err := sgrpc.Listen(path)
	assert.Error(t, err)
	assert.FileExists(t, path)
}
