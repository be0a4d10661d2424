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

package servers_test

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/securityd/securityd/pkg/acl"
	sgrpc "github.com/securityd/securityd/pkg/grpc"
	"github.com/securityd/securityd/pkg/private/xtest"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/pkg/secret"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/pkg/trust/mock_trust"
	"github.com/securityd/securityd/pkg/walker"
	fstrustdb "github.com/securityd/securityd/private/storage/trust/fs"
	"github.com/securityd/securityd/securityd/internal/servers"
	"github.com/securityd/securityd/securityd/ipc"
)

func startServer(t *testing.T, srv *servers.Security) *ipc.Client {
	t.Helper()
	svc := xtest.NewGRPCService(
		ipc.ServerCodec(),
		sgrpc.UnaryServerInterceptor(),
		grpc.Creds(sgrpc.PeerCredentials()),
	)
	ipc.RegisterSecurityServer(svc.Server(), srv)
	svc.Start(t)
	return ipc.NewClient(svc.Dial(t))
}

func entry(t *testing.T, tag string, sub acl.Subject, ops acl.Operation) ipc.EntryBlob {
	t.Helper()
	e, err := ipc.NewEntryBlob(acl.Entry{Tag: tag, Subject: sub, Operations: ops})
	require.NoError(t, err)
	return e
}

func password(pw string) acl.Sample {
	return acl.Sample{
		Kind:   acl.KindPassword,
		Values: []secret.Value{secret.NewBytes([]byte(pw))},
	}
}

func TestACL(t *testing.T) {
	ctx := context.Background()
	client := startServer(t, &servers.Security{ACLs: &servers.ACLTable{}})

	uid := uint32(os.Getuid())
	resp, err := client.SetACL(ctx, &ipc.SetACLRequest{
		Name: "login",
		Entries: []ipc.EntryBlob{
			entry(t, "owner", acl.NewPassword([]byte("hunter2")), acl.OpDecrypt|acl.OpSign),
			entry(t, "public", acl.AnySubject{}, acl.OpEncrypt),
			entry(t, "self", &acl.ProcessSubject{UID: &uid}, acl.OpDelete),
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Replaced)

	testCases := map[string]struct {
		req      *ipc.EvaluateRequest
		decision acl.Decision
		code     codes.Code
	}{
		"password granted": {
			req: &ipc.EvaluateRequest{
				Name:      "login",
				Operation: acl.OpDecrypt,
				Samples:   []acl.Sample{password("hunter2")},
			},
			decision: acl.Granted,
		},
		"wrong password is a denial": {
			req: &ipc.EvaluateRequest{
				Name:      "login",
				Operation: acl.OpDecrypt,
				Samples:   []acl.Sample{password("hunter3")},
			},
			decision: acl.Denied,
		},
		"operation not covered": {
			req: &ipc.EvaluateRequest{
				Name:      "login",
				Operation: acl.OpDecrypt | acl.OpExportClear,
				Samples:   []acl.Sample{password("hunter2")},
			},
			decision: acl.Denied,
		},
		"anyone may encrypt": {
			req:      &ipc.EvaluateRequest{Name: "login", Operation: acl.OpEncrypt},
			decision: acl.Granted,
		},
		// The in-memory transport reports no peer process.
		"process needs transport credentials": {
			req:      &ipc.EvaluateRequest{Name: "login", Operation: acl.OpDelete},
			decision: acl.Denied,
		},
		"unknown ACL": {
			req:  &ipc.EvaluateRequest{Name: "nope", Operation: acl.OpEncrypt},
			code: codes.NotFound,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			resp, err := client.Evaluate(ctx, tc.req)
			if tc.code != codes.OK {
				assert.Equal(t, tc.code, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.decision, resp.Decision)
		})
	}

	t.Run("replace", func(t *testing.T) {
		resp, err := client.SetACL(ctx, &ipc.SetACLRequest{
			Name:    "login",
			Entries: []ipc.EntryBlob{entry(t, "public", acl.AnySubject{}, acl.OpAny)},
		})
		require.NoError(t, err)
		assert.True(t, resp.Replaced)
		eval, err := client.Evaluate(ctx, &ipc.EvaluateRequest{Name: "login", Operation: acl.OpDecrypt})
		require.NoError(t, err)
		assert.Equal(t, acl.Granted, eval.Decision)
	})
	t.Run("duplicate tag", func(t *testing.T) {
		_, err := client.SetACL(ctx, &ipc.SetACLRequest{
			Name: "dup",
			Entries: []ipc.EntryBlob{
				entry(t, "a", acl.AnySubject{}, acl.OpAny),
				entry(t, "a", acl.AnySubject{}, acl.OpSign),
			},
		})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
	t.Run("corrupt subject blob", func(t *testing.T) {
		e := entry(t, "a", acl.NewPassword([]byte("x")), acl.OpAny)
		e.Private = e.Private[:1]
		_, err := client.SetACL(ctx, &ipc.SetACLRequest{Name: "bad", Entries: []ipc.EntryBlob{e}})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestTrust(t *testing.T) {
	ctx := context.Background()
	db, err := fstrustdb.New(t.TempDir())
	require.NoError(t, err)
	client := startServer(t, &servers.Security{Trust: trust.NewStore(db, nil)})

	find := &ipc.FindTrustRequest{Fingerprint: []byte{0xaa}, PolicyOID: trust.PolicySSL}
	got, err := client.FindTrust(ctx, find)
	require.NoError(t, err)
	assert.Equal(t, trust.Unspecified, got.Decision)

	_, err = client.AssignTrust(ctx, &ipc.AssignTrustRequest{
		Fingerprint: find.Fingerprint,
		PolicyOID:   find.PolicyOID,
		Decision:    trust.Deny,
	})
	require.NoError(t, err)
	got, err = client.FindTrust(ctx, find)
	require.NoError(t, err)
	assert.Equal(t, trust.Deny, got.Decision)

	_, err = client.AssignTrust(ctx, &ipc.AssignTrustRequest{
		Fingerprint: find.Fingerprint,
		PolicyOID:   find.PolicyOID,
		Decision:    trust.Decision(42),
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStorageFaultsAreInternal(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	db := mock_trust.NewMockDB(ctrl)
	db.EXPECT().ReadRecord(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk on fire"))
	db.EXPECT().WriteRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("read-only file system"))
	roots := mock_trust.NewMockRootLoader(ctrl)
	roots.EXPECT().LoadRoots(gomock.Any()).Return(nil, errors.New("no such directory"))

	client := startServer(t, &servers.Security{Trust: trust.NewStore(db, roots)})

	_, err := client.FindTrust(ctx, &ipc.FindTrustRequest{
		Fingerprint: []byte{1}, PolicyOID: trust.PolicySSL,
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	_, err = client.AssignTrust(ctx, &ipc.AssignTrustRequest{
		Fingerprint: []byte{1}, PolicyOID: trust.PolicySSL, Decision: trust.Proceed,
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	_, err = client.CopyRoots(ctx, &ipc.CopyRootsRequest{})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestCopyRoots(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	first, second := xtest.NewRootCA(t, "first"), xtest.NewRootCA(t, "second")
	roots := mock_trust.NewMockRootLoader(ctrl)
	gomock.InOrder(
		roots.EXPECT().LoadRoots(gomock.Any()).Return([]*x509.Certificate{first.Cert}, nil),
		roots.EXPECT().LoadRoots(gomock.Any()).
			Return([]*x509.Certificate{first.Cert, second.Cert}, nil),
	)
	db, err := fstrustdb.New(t.TempDir())
	require.NoError(t, err)
	client := startServer(t, &servers.Security{Trust: trust.NewStore(db, roots)})

	for range 2 {
		resp, err := client.CopyRoots(ctx, &ipc.CopyRootsRequest{})
		require.NoError(t, err)
		assert.Equal(t, [][]byte{first.Cert.Raw}, resp.Roots)
	}
	resp, err := client.CopyRoots(ctx, &ipc.CopyRootsRequest{Refresh: true})
	require.NoError(t, err)
	assert.Len(t, resp.Roots, 2)
}

// bogus sends a graph that does not match any request.
type bogus struct{}

func (bogus) Node() (*walker.Node, error) { return walker.NewNode(walker.U64(1)), nil }
func (bogus) FromNode(*walker.Node) error { return nil }

func TestMalformedRequest(t *testing.T) {
	svc := xtest.NewGRPCService(ipc.ServerCodec())
	ipc.RegisterSecurityServer(svc.Server(), &servers.Security{ACLs: &servers.ACLTable{}})
	svc.Start(t)
	conn := svc.Dial(t)

	err := conn.Invoke(context.Background(), "/securityd.v1.Security/Evaluate",
		bogus{}, &ipc.EvaluateResponse{}, grpc.ForceCodec(ipc.Codec{}))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestACLTable(t *testing.T) {
	var table servers.ACLTable
	assert.False(t, table.Set("b", &acl.ObjectACL{}))
	assert.False(t, table.Set("a", &acl.ObjectACL{}))
	assert.True(t, table.Set("b", &acl.ObjectACL{}))
	assert.Equal(t, []string{"a", "b"}, table.Names())
	_, ok := table.Get("c")
	assert.False(t, ok)
}

func TestCheckChain(t *testing.T) {
	ctx := context.Background()
	root := xtest.NewRootCA(t, "root")
	inter := root.NewCA(t, "inter", 10)
	leaf := inter.NewLeaf(t, "leaf", 100)
	next := time.Now().Add(time.Hour).Truncate(time.Second).UTC()

	crl := revocation.FetcherFunc(func(_ context.Context, cert, _ *x509.Certificate) ([]byte, error) {
		iss := root
		if cert.Issuer.CommonName == "inter" {
			iss = inter
		}
		tmpl := &x509.RevocationList{
			Number:     big.NewInt(1),
			ThisUpdate: time.Now().Add(-time.Minute),
			NextUpdate: next,
		}
		if cert.SerialNumber.Cmp(leaf.SerialNumber) == 0 {
			tmpl.RevokedCertificateEntries = []x509.RevocationListEntry{{
				SerialNumber:   cert.SerialNumber,
				RevocationTime: time.Now().Add(-time.Minute),
			}}
		}
		return x509.CreateRevocationList(rand.Reader, tmpl, iss.Cert, iss.Key)
	})
	client := startServer(t, &servers.Security{
		ACLs:       &servers.ACLTable{},
		Revocation: &revocation.Checker{CRL: crl},
	})

	resp, err := client.CheckChain(ctx, &ipc.CheckChainRequest{
		Chain: [][]byte{leaf.Raw, inter.Cert.Raw, root.Cert.Raw},
	})
	require.NoError(t, err)
	assert.Equal(t, []revocation.State{
		revocation.DefinitiveRevoked,
		revocation.DefinitiveValid,
	}, resp.States)
	assert.True(t, resp.Revoked)
	assert.False(t, resp.Accepted)
	assert.Equal(t, next, resp.NextUpdate)

	testCases := map[string]struct {
		chain [][]byte
		code  codes.Code
	}{
		"empty chain": {
			code: codes.InvalidArgument,
		},
		"garbage certificate": {
			chain: [][]byte{{0x30, 0x00}, root.Cert.Raw},
			code:  codes.InvalidArgument,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := client.CheckChain(ctx, &ipc.CheckChainRequest{Chain: tc.chain})
			assert.Equal(t, tc.code, status.Code(err))
		})
	}

	t.Run("disabled", func(t *testing.T) {
		disabled := startServer(t, &servers.Security{ACLs: &servers.ACLTable{}})
		_, err := disabled.CheckChain(ctx, &ipc.CheckChainRequest{
			Chain: [][]byte{leaf.Raw, inter.Cert.Raw},
		})
		assert.Equal(t, codes.Unimplemented, status.Code(err))
	})
}
