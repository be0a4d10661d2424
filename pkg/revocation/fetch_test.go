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

package revocation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"
)

func TestHTTPFetcher(t *testing.T) {
	p := newPKI(t)
	p.revoke["100"] = true
	goodOCSP := p.ocsp(t, ocsp.Good)
	crl := p.crl(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/ocsp", func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req, err := ocsp.ParseRequest(raw)
		if err != nil || req.SerialNumber.Cmp(p.leaf.SerialNumber) != 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp, _ := goodOCSP.Fetch(r.Context(), p.leaf, p.inter.Cert)
		_, _ = w.Write(resp)
	})
	mux.HandleFunc("/crl", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := crl.Fetch(r.Context(), p.leaf, p.inter.Cert)
		_, _ = w.Write(resp)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	leaf := *p.leaf
	leaf.OCSPServer = []string{"ldap://ignored", srv.URL + "/ocsp"}
	leaf.CRLDistributionPoints = []string{srv.URL + "/crl"}
	fetcher := HTTPFetcher{Client: srv.Client()}

	t.Run("ocsp", func(t *testing.T) {
		rvc := NewContext(0, &leaf, p.inter.Cert)
		c := &Checker{OCSP: fetcher.OCSP()}
		require.NoError(t, c.Check(context.Background(), rvc))
		assert.Equal(t, DefinitiveValid, rvc.State())
	})
	t.Run("crl", func(t *testing.T) {
		rvc := NewContext(0, &leaf, p.inter.Cert)
		c := &Checker{CRL: fetcher.CRL()}
		require.NoError(t, c.Check(context.Background(), rvc))
		assert.Equal(t, DefinitiveRevoked, rvc.State())
	})
	t.Run("not found", func(t *testing.T) {
		missing := leaf
		missing.CRLDistributionPoints = []string{srv.URL + "/missing"}
		_, err := fetcher.CRL().Fetch(context.Background(), &missing, p.inter.Cert)
		assert.Error(t, err)
	})
	t.Run("too large", func(t *testing.T) {
		small := HTTPFetcher{Client: srv.Client(), MaxSize: 8}
		_, err := small.CRL().Fetch(context.Background(), &leaf, p.inter.Cert)
		assert.Error(t, err)
	})
	t.Run("no http location", func(t *testing.T) {
		none := leaf
		none.OCSPServer = []string{"ldap://ignored"}
		_, err := fetcher.OCSP().Fetch(context.Background(), &none, p.inter.Cert)
		assert.Error(t, err)
	})
}

func TestFileFetcher(t *testing.T) {
	p := newPKI(t)
	raw, err := p.crl(t).Fetch(context.Background(), p.leaf, p.inter.Cert)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "inter.crl")
	require.NoError(t, os.WriteFile(file, raw, 0o600))

	rvc := NewContext(0, p.leaf, p.inter.Cert)
	c := &Checker{CRL: FileFetcher(file)}
	require.NoError(t, c.Check(context.Background(), rvc))
	assert.Equal(t, DefinitiveValid, rvc.State())

	_, err = FileFetcher(filepath.Join(t.TempDir(), "missing")).Fetch(
		context.Background(), p.leaf, p.inter.Cert)
	assert.Error(t, err)
}
