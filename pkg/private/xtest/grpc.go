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

package xtest

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// GRPCService is an in-memory gRPC server for tests.
type GRPCService struct {
	listener *bufconn.Listener
	server   *grpc.Server
}

func NewGRPCService(opts ...grpc.ServerOption) *GRPCService {
	return &GRPCService{
		listener: bufconn.Listen(1024 * 1024),
		server:   grpc.NewServer(opts...),
	}
}

func (s *GRPCService) Server() *grpc.Server {
	return s.server
}

// Start serves in the background until the test ends.
func (s *GRPCService) Start(t testing.TB) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.server.Serve(s.listener)
	}()
	t.Cleanup(func() {
		s.server.Stop()
		<-done
	})
}

// Dial connects a client to the service. The connection is closed when the
// test ends.
func (s *GRPCService) Dial(t testing.TB, opts ...grpc.DialOption) *grpc.ClientConn {
	opts = append([]grpc.DialOption{
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return s.listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}
