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

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/private/xtest"
	"github.com/securityd/securityd/private/app/command"
	"github.com/securityd/securityd/private/service"
	"github.com/securityd/securityd/private/storage"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestDaemon(t *testing.T) {
	dir := t.TempDir()
	rootsDir := filepath.Join(dir, "roots")
	require.NoError(t, os.Mkdir(rootsDir, 0o755))
	root := xtest.NewRootCA(t, "securityd test root")
	xtest.WritePEM(t, rootsDir, "root.pem", root.Cert)
	leaf := xtest.WritePEM(t, dir, "leaf.pem", root.NewLeaf(t, "leaf", 7))
	sock := filepath.Join(dir, "sd.sock")

	globalCfg.InitDefaults()
	globalCfg.General.Address = sock
	globalCfg.TrustDB.Backend = storage.BackendFS
	globalCfg.TrustDB.Connection = filepath.Join(dir, "db")
	globalCfg.Trust.RootsDir = rootsDir
	require.NoError(t, globalCfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- realMain(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("daemon did not stop")
		}
	}()
	require.Eventually(t, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	pather := command.StringPather("securityd")
	out := execute(t, newTrust(pather), "find", leaf, "--address", sock)
	assert.Contains(t, out, "unspecified")

	out = execute(t, newTrust(pather), "assign", leaf, "deny", "--address", sock)
	assert.Contains(t, out, "deny")
	out = execute(t, newTrust(pather), "find", leaf, "--address", sock)
	assert.Contains(t, out, "deny")

	out = execute(t, newRoots(pather), "--address", sock)
	assert.Contains(t, out, "securityd test root")
}

func TestOfflineRevocationCheck(t *testing.T) {
	dir := t.TempDir()
	root := xtest.NewRootCA(t, "root")
	leaf := root.NewLeaf(t, "leaf", 42)
	chain := xtest.WritePEM(t, dir, "chain.pem", leaf, root.Cert)

	crl := func(revoked bool) string {
		tmpl := &x509.RevocationList{
			Number:     big.NewInt(1),
			ThisUpdate: time.Now().Add(-time.Minute),
			NextUpdate: time.Now().Add(time.Hour),
		}
		if revoked {
			tmpl.RevokedCertificateEntries = []x509.RevocationListEntry{{
				SerialNumber:   leaf.SerialNumber,
				RevocationTime: time.Now().Add(-time.Minute),
			}}
		}
		raw, err := x509.CreateRevocationList(rand.Reader, tmpl, root.Cert, root.Key)
		require.NoError(t, err)
		file := filepath.Join(t.TempDir(), "root.crl")
		require.NoError(t, os.WriteFile(file, raw, 0o600))
		return file
	}

	testCases := map[string]struct {
		revoked bool
		state   string
		verdict string
	}{
		"valid":   {state: "valid", verdict: "accepted"},
		"revoked": {revoked: true, state: "revoked", verdict: "rejected"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			out := execute(t, newRevocation(command.StringPather("securityd")),
				"check", "--offline", "--prefer-crl", "--crl", crl(tc.revoked), chain)
			assert.Contains(t, out, tc.state)
			assert.Contains(t, out, tc.verdict)
			assert.Contains(t, out, "next update")
		})
	}
}

func TestLoadCerts(t *testing.T) {
	dir := t.TempDir()
	root := xtest.NewRootCA(t, "root")

	certs, err := loadCerts(xtest.WritePEM(t, dir, "root.pem", root.Cert))
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.True(t, certs[0].Equal(root.Cert))

	der := filepath.Join(dir, "root.der")
	require.NoError(t, os.WriteFile(der, root.Cert.Raw, 0o600))
	certs, err = loadCerts(der)
	require.NoError(t, err)
	assert.True(t, certs[0].Equal(root.Cert))

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("garbage"), 0o600))
	_, err = loadCerts(garbage)
	assert.Error(t, err)
}

func TestNewHTTPHandler(t *testing.T) {
	page := service.StatusPage{
		Info:    "ok",
		Handler: func(w http.ResponseWriter, _ *http.Request) {},
	}
	testCases := map[string]struct {
		pages     service.StatusPages
		assertErr assert.ErrorAssertionFunc
	}{
		"valid": {
			pages:     service.StatusPages{"info": page},
			assertErr: assert.NoError,
		},
		"empty path": {
			pages:     service.StatusPages{"": page},
			assertErr: assert.Error,
		},
		"absolute path": {
			pages:     service.StatusPages{"/info": page},
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			h, err := newHTTPHandler(tc.pages)
			tc.assertErr(t, err)
			if err != nil {
				assert.Nil(t, h)
				return
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "/info")
		})
	}
}
