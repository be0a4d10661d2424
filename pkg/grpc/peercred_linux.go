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

//go:build linux

package grpc

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/securityd/securityd/pkg/private/serrors"
)

func unixPeerCred(conn *net.UnixConn) (*PeerCred, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, serrors.Wrap("accessing socket", err)
	}
	var ucred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		ucred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, serrors.Wrap("accessing socket", err)
	}
	if credErr != nil {
		return nil, serrors.Wrap("reading peer credentials", credErr)
	}
	return &PeerCred{UID: ucred.Uid, GID: ucred.Gid, PID: ucred.Pid}, nil
}
