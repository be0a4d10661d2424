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
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
)

// FailureMode decides how a certificate without a definitive verdict is
// treated.
type FailureMode int

const (
	// FailOpen accepts certificates whose revocation status is unknown.
	FailOpen FailureMode = iota
	// FailClosed rejects certificates whose revocation status is unknown.
	FailClosed
)

func (m FailureMode) String() string {
	if m == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

func (m FailureMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FailureMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "fail_open", "open":
		*m = FailOpen
	case "fail_closed", "closed":
		*m = FailClosed
	default:
		return serrors.New("unknown failure mode", "mode", string(text))
	}
	return nil
}

// Policy configures the checker.
type Policy struct {
	FailureMode FailureMode
	// PreferCRL consults the CRL before OCSP.
	PreferCRL bool
}

// Checker drives revocation verification contexts. OCSP, CRL and DB are
// optional; a missing fetcher disables the corresponding source.
type Checker struct {
	Policy  Policy
	OCSP    Fetcher
	CRL     Fetcher
	DB      *ValidInfoDB
	Metrics *Metrics
	// Concurrency bounds the number of positions checked in parallel by
	// CheckChain. Zero means unbounded.
	Concurrency int
	// Now returns the current time for freshness checks. Nil means time.Now.
	Now func() time.Time
}

type attempt struct {
	pending State
	sub     verifier
}

func (c *Checker) attempts(rvc *Context) []attempt {
	var ocspAttempt, crlAttempt []attempt
	if c.OCSP != nil && len(rvc.Cert.OCSPServer) > 0 {
		ocspAttempt = []attempt{{OCSPPending, &OCSPContext{Fetcher: c.OCSP, Now: c.Now}}}
	}
	if c.CRL != nil && len(rvc.Cert.CRLDistributionPoints) > 0 {
		crlAttempt = []attempt{{CRLPending, &CRLContext{Fetcher: c.CRL, Now: c.Now}}}
	}
	if c.Policy.PreferCRL {
		return append(crlAttempt, ocspAttempt...)
	}
	return append(ocspAttempt, crlAttempt...)
}

// Check drives rvc to a terminal state. Sources are tried in policy order
// until one produces a definitive verdict. If every source failed, the
// context is Failed and the joined failures are returned. If no source
// produced a definitive verdict otherwise, the context is Indeterminate.
func (c *Checker) Check(ctx context.Context, rvc *Context) error {
	if rvc.Done() {
		return rvc.Err()
	}
	logger := log.FromCtx(ctx)
	if c.DB != nil {
		if info, ok := c.DB.Lookup(rvc.Cert, rvc.Issuer); ok {
			rvc.finish(info)
			c.Metrics.observe(SourceNone, rvc.State())
			return nil
		}
	}
	var errs []error
	var undecided bool
	for _, a := range c.attempts(rvc) {
		if !rvc.begin(a.pending, a.sub) {
			return rvc.Err()
		}
		info, err := a.sub.Verify(ctx, rvc.Cert, rvc.Issuer)
		if err != nil {
			logger.Debug("Revocation source failed", "index", rvc.Index,
				"state", a.pending, "err", err)
			errs = append(errs, err)
			continue
		}
		if info.Status == StatusUnknown {
			undecided = true
			continue
		}
		rvc.finish(info)
		if c.DB != nil {
			c.DB.Store(rvc.Cert, rvc.Issuer, info)
		}
		c.Metrics.observe(info.Source, rvc.State())
		return nil
	}
	if len(errs) > 0 && !undecided {
		rvc.fail(errors.Join(errs...))
	} else {
		rvc.giveUp()
	}
	c.Metrics.observe(SourceNone, rvc.State())
	return rvc.Err()
}

// CheckRevocation reports whether the certificate of rvc is acceptable. A
// definitive verdict decides; otherwise the policy's failure mode does.
func (c *Checker) CheckRevocation(rvc *Context) bool {
	switch rvc.State() {
	case DefinitiveValid:
		return true
	case DefinitiveRevoked:
		return false
	default:
		return c.Policy.FailureMode == FailOpen
	}
}

// EarliestNextUpdate returns when the verdict for rvc should be refreshed.
func (c *Checker) EarliestNextUpdate(rvc *Context) (time.Time, bool) {
	return rvc.EarliestNextUpdate()
}

// ChainResult aggregates the revocation results of a chain.
type ChainResult struct {
	// Contexts holds one context per checked position. The last certificate
	// of the chain is the anchor and is not checked.
	Contexts []*Context
	// Revoked is set if any position is definitively revoked.
	Revoked bool
	// Definitive is set if every position has a definitive verdict.
	Definitive bool
	// Accepted is the chain verdict under the checker's policy.
	Accepted bool
	// NextUpdate is the earliest next update over all positions.
	NextUpdate    time.Time
	HasNextUpdate bool
}

// CheckChain checks every non-anchor position of chain concurrently.
// chain[i] must be issued by chain[i+1]. Source failures are recorded in the
// contexts; an error is only returned if ctx is cancelled.
func (c *Checker) CheckChain(ctx context.Context,
	chain []*x509.Certificate) (res ChainResult, err error) {

	defer func(start time.Time) { c.Metrics.observeChain(res, err, time.Since(start)) }(time.Now())
	for i := 0; i+1 < len(chain); i++ {
		res.Contexts = append(res.Contexts, NewContext(i, chain[i], chain[i+1]))
	}
	g, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for _, rvc := range res.Contexts {
		g.Go(func() error {
			defer log.HandlePanic()
			if err := gctx.Err(); err != nil {
				return err
			}
			_ = c.Check(gctx, rvc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, serrors.Wrap("checking chain", err)
	}
	if err := ctx.Err(); err != nil {
		return res, serrors.Wrap("checking chain", err)
	}
	res.Definitive = true
	res.Accepted = true
	for _, rvc := range res.Contexts {
		res.Revoked = res.Revoked || rvc.HasRevokedValidInfo()
		res.Definitive = res.Definitive &&
			(rvc.HasDefinitiveValidInfo() || rvc.HasRevokedValidInfo())
		res.Accepted = res.Accepted && c.CheckRevocation(rvc)
		if t, ok := c.EarliestNextUpdate(rvc); ok {
			if !res.HasNextUpdate || t.Before(res.NextUpdate) {
				res.NextUpdate = t
				res.HasNextUpdate = true
			}
		}
	}
	return res, nil
}
