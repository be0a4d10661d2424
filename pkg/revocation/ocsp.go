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
	"crypto/x509"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// Fetcher retrieves a raw revocation response for cert from the network.
// Timeouts are the fetcher's responsibility.
type Fetcher interface {
	Fetch(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, cert, issuer *x509.Certificate) ([]byte, error) {
	return f(ctx, cert, issuer)
}

type verifier interface {
	Verify(ctx context.Context, cert, issuer *x509.Certificate) (ValidInfo, error)
	Result() (ValidInfo, bool)
}

// MaxClockSkew is how far in the future a response's ThisUpdate may lie.
const MaxClockSkew = 5 * time.Minute

// checkFresh rejects responses that are no longer, or not yet, current.
func checkFresh(info ValidInfo, now time.Time) error {
	if info.Expired(now) {
		return serrors.JoinNoStack(ErrParseFailure, nil, "source", info.Source,
			"reason", "stale response", "next_update", info.NextUpdate)
	}
	if info.ThisUpdate.After(now.Add(MaxClockSkew)) {
		return serrors.JoinNoStack(ErrParseFailure, nil, "source", info.Source,
			"reason", "response from the future", "this_update", info.ThisUpdate)
	}
	return nil
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

// result holds the outcome of a sub-context.
type result struct {
	mtx  sync.Mutex
	info *ValidInfo
	err  error
}

func (r *result) set(info ValidInfo, err error) (ValidInfo, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.err = err
	if err == nil {
		r.info = &info
	}
	return info, err
}

// Result returns the validity information the sub-context produced.
func (r *result) Result() (ValidInfo, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.info == nil {
		return ValidInfo{}, false
	}
	return *r.info, true
}

// Err returns the failure of the last verification.
func (r *result) Err() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.err
}

// OCSPContext verifies a certificate with an OCSP response.
type OCSPContext struct {
	Fetcher Fetcher
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
	result
}

// Verify fetches and checks the OCSP response for cert. The response must be
// signed by the issuer or by a responder it delegated to, and must be current:
// a response past its NextUpdate is a parse failure.
func (c *OCSPContext) Verify(ctx context.Context, cert, issuer *x509.Certificate) (ValidInfo, error) {
	raw, err := c.Fetcher.Fetch(ctx, cert, issuer)
	if err != nil {
		return c.set(ValidInfo{}, serrors.JoinNoStack(ErrNetworkFailure, err, "source", SourceOCSP))
	}
	resp, err := ocsp.ParseResponseForCert(raw, cert, issuer)
	if err != nil {
		return c.set(ValidInfo{}, serrors.JoinNoStack(ErrParseFailure, err, "source", SourceOCSP))
	}
	info := ValidInfo{
		Source:     SourceOCSP,
		ThisUpdate: resp.ThisUpdate,
		NextUpdate: resp.NextUpdate,
	}
	switch resp.Status {
	case ocsp.Good:
		info.Status = StatusGood
	case ocsp.Revoked:
		info.Status = StatusRevoked
		info.RevokedAt = resp.RevokedAt
	default:
		info.Status = StatusUnknown
	}
	if err := checkFresh(info, nowOr(c.Now)); err != nil {
		return c.set(ValidInfo{}, err)
	}
	return c.set(info, nil)
}
