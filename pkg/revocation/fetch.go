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
	"bytes"
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/securityd/securityd/pkg/private/serrors"
)

const (
	// DefaultFetchTimeout bounds one HTTP fetch if the context has no
	// deadline.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultMaxResponseSize bounds the size of fetched responses.
	DefaultMaxResponseSize = 4 << 20
)

// HTTPFetcher retrieves OCSP responses and CRLs from the locations named in
// the certificate.
type HTTPFetcher struct {
	// Client is used for all requests. Nil selects http.DefaultClient.
	Client *http.Client
	// Timeout applies per fetch. Zero selects DefaultFetchTimeout.
	Timeout time.Duration
	// MaxSize bounds the response body. Zero selects DefaultMaxResponseSize.
	MaxSize int64
}

// OCSP returns a fetcher that POSTs an OCSP request to the first HTTP
// responder of the certificate.
func (f HTTPFetcher) OCSP() Fetcher {
	return FetcherFunc(func(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, error) {
		url, ok := firstHTTP(cert.OCSPServer)
		if !ok {
			return nil, serrors.New("no http ocsp responder", "serial", cert.SerialNumber)
		}
		req, err := ocsp.CreateRequest(cert, issuer, nil)
		if err != nil {
			return nil, serrors.Wrap("creating ocsp request", err)
		}
		return f.do(ctx, http.MethodPost, url, req)
	})
}

// CRL returns a fetcher that GETs the first HTTP distribution point of the
// certificate.
func (f HTTPFetcher) CRL() Fetcher {
	return FetcherFunc(func(ctx context.Context, cert, _ *x509.Certificate) ([]byte, error) {
		url, ok := firstHTTP(cert.CRLDistributionPoints)
		if !ok {
			return nil, serrors.New("no http crl distribution point",
				"serial", cert.SerialNumber)
		}
		return f.do(ctx, http.MethodGet, url, nil)
	})
}

func (f HTTPFetcher) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, serrors.Wrap("creating request", err, "url", url)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/ocsp-request")
		req.Header.Set("Accept", "application/ocsp-response")
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, serrors.Wrap("sending request", err, "url", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serrors.New("unexpected status", "url", url, "status", resp.StatusCode)
	}
	limit := f.MaxSize
	if limit == 0 {
		limit = DefaultMaxResponseSize
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, serrors.Wrap("reading response", err, "url", url)
	}
	if int64(len(raw)) > limit {
		return nil, serrors.New("response too large", "url", url, "limit", limit)
	}
	return raw, nil
}

func firstHTTP(urls []string) (string, bool) {
	for _, u := range urls {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return u, true
		}
	}
	return "", false
}

// FileFetcher serves a fixed response read from disk, regardless of the
// certificate. It is meant for offline checks.
type FileFetcher string

func (f FileFetcher) Fetch(ctx context.Context, _, _ *x509.Certificate) ([]byte, error) {
	raw, err := os.ReadFile(string(f))
	if err != nil {
		return nil, serrors.Wrap("reading response file", err, "file", string(f))
	}
	return raw, nil
}
