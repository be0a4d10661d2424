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

package grpc

import (
	"context"
	"net"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// Dialer creates a gRPC client connection to the given target.
type Dialer interface {
	Dial(ctx context.Context, target string) (*grpc.ClientConn, error)
}

// SimpleDialer dials the target with the default client interceptors. The
// target is either an absolute path of a unix socket or a host:port.
type SimpleDialer struct {
	// Options are appended to the default dial options.
	Options []grpc.DialOption
}

// Dial creates the client connection. The connection is established lazily.
func (d SimpleDialer) Dial(ctx context.Context, target string) (*grpc.ClientConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		UnaryClientInterceptor(),
	}, d.Options...)
	conn, err := grpc.NewClient(Target(target), opts...)
	if err != nil {
		return nil, serrors.Wrap("creating client", err, "target", target)
	}
	return conn, nil
}

// Target converts an address into a gRPC target string.
func Target(address string) string {
	if strings.HasPrefix(address, "/") {
		return "unix://" + address
	}
	return "passthrough:///" + address
}

// Listen opens the listener for a server address, see Target. A stale unix
// socket left behind by a previous instance is removed.
func Listen(address string) (net.Listener, error) {
	network := "tcp"
	if strings.HasPrefix(address, "/") {
		network = "unix"
		if fi, err := os.Lstat(address); err == nil && fi.Mode()&os.ModeSocket != 0 {
			if err := os.Remove(address); err != nil {
				return nil, serrors.Wrap("removing stale socket", err, "address", address)
			}
		}
	}
	l, err := net.Listen(network, address)
	if err != nil {
		return nil, serrors.Wrap("listening", err, "network", network, "address", address)
	}
	return l, nil
}
