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

	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

// PeerCred identifies the process on the other end of a unix socket.
type PeerCred struct {
	UID, GID uint32
	PID      int32
}

// PeerAuthInfo carries the credentials of the peer process. Cred is nil if
// the transport cannot report them.
type PeerAuthInfo struct {
	credentials.CommonAuthInfo
	Cred *PeerCred
}

func (PeerAuthInfo) AuthType() string {
	return "peercred"
}

// PeerCredentials returns server transport credentials that record the
// operating system credentials of unix socket peers. The transport itself is
// not encrypted.
func PeerCredentials() credentials.TransportCredentials {
	return peerCreds{}
}

type peerCreds struct{}

func (peerCreds) ClientHandshake(_ context.Context, _ string,
	conn net.Conn) (net.Conn, credentials.AuthInfo, error) {

	return conn, PeerAuthInfo{
		CommonAuthInfo: credentials.CommonAuthInfo{SecurityLevel: credentials.NoSecurity},
	}, nil
}

func (peerCreds) ServerHandshake(conn net.Conn) (net.Conn, credentials.AuthInfo, error) {
	info := PeerAuthInfo{
		CommonAuthInfo: credentials.CommonAuthInfo{SecurityLevel: credentials.NoSecurity},
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		cred, err := unixPeerCred(uc)
		if err != nil {
			return nil, nil, err
		}
		info.Cred = cred
	}
	return conn, info, nil
}

func (peerCreds) Info() credentials.ProtocolInfo {
	return credentials.ProtocolInfo{SecurityProtocol: "peercred"}
}

func (c peerCreds) Clone() credentials.TransportCredentials {
	return c
}

func (peerCreds) OverrideServerName(string) error {
	return nil
}

// PeerCredFromContext returns the peer credentials of the RPC in ctx.
func PeerCredFromContext(ctx context.Context) (*PeerCred, bool) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil, false
	}
	info, ok := p.AuthInfo.(PeerAuthInfo)
	if !ok || info.Cred == nil {
		return nil, false
	}
	return info.Cred, true
}
