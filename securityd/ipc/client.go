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

package ipc

import (
	"context"

	"google.golang.org/grpc"

	sgrpc "github.com/securityd/securityd/pkg/grpc"
)

// DefaultAddress is the default daemon socket.
const DefaultAddress = "/run/securityd/securityd.sock"

// Client is a connection to the daemon.
type Client struct {
	SecurityClient
	conn *grpc.ClientConn
}

// Dial connects to the daemon at address, a unix socket path or host:port.
func Dial(ctx context.Context, address string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := sgrpc.SimpleDialer{Options: opts}.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection. Closing the client closes conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{SecurityClient: NewSecurityClient(conn), conn: conn}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
