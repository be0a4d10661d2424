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

// Package revocation implements the per-certificate revocation verification
// context used by chain validation.
//
// A Context tracks the revocation state of one certificate position in a
// candidate chain. A Checker drives contexts through OCSP and CRL
// sub-contexts and exposes the path-builder interface (CheckRevocation,
// EarliestNextUpdate). Whether a missing verdict is accepted is decided by
// the checker's Policy, never by the context.
package revocation

import (
	"crypto/x509"
	"sync"
	"time"

	"github.com/securityd/securityd/pkg/private/serrors"
)

var (
	// ErrNetworkFailure indicates that a revocation source could not be
	// fetched.
	ErrNetworkFailure = serrors.New("revocation source unreachable")
	// ErrParseFailure indicates that a revocation response could not be
	// parsed or verified.
	ErrParseFailure = serrors.New("malformed revocation response")
)

// State is the state of a revocation verification context.
type State int

const (
	NotStarted State = iota
	OCSPPending
	CRLPending
	DefinitiveValid
	DefinitiveRevoked
	Indeterminate
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case OCSPPending:
		return "ocsp_pending"
	case CRLPending:
		return "crl_pending"
	case DefinitiveValid:
		return "valid"
	case DefinitiveRevoked:
		return "revoked"
	case Indeterminate:
		return "indeterminate"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions happen from s, apart from
// SetRevokedResult.
func (s State) Terminal() bool {
	return s >= DefinitiveValid
}

// Context is the revocation verification context for one certificate
// position. It is safe for concurrent use.
type Context struct {
	// Index is the position of Cert in the chain.
	Index  int
	Cert   *x509.Certificate
	Issuer *x509.Certificate

	mtx   sync.Mutex
	state State
	ocsp  *OCSPContext
	crl   *CRLContext
	info  *ValidInfo
	err   error
}

// NewContext creates a context for the certificate at position index.
func NewContext(index int, cert, issuer *x509.Certificate) *Context {
	return &Context{Index: index, Cert: cert, Issuer: issuer}
}

func (c *Context) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// Done reports whether the context reached a terminal state.
func (c *Context) Done() bool {
	return c.State().Terminal()
}

// Err returns the failure recorded in the Failed state.
func (c *Context) Err() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.err
}

// ValidInfo returns the validity information the verdict is based on.
func (c *Context) ValidInfo() (ValidInfo, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.info == nil {
		return ValidInfo{}, false
	}
	return *c.info, true
}

func (c *Context) HasDefinitiveValidInfo() bool {
	return c.State() == DefinitiveValid
}

func (c *Context) HasRevokedValidInfo() bool {
	return c.State() == DefinitiveRevoked
}

// EarliestNextUpdate returns the minimum next update time over the results
// of the sub-contexts and the stored validity information. It returns false
// if no time bounded result was obtained.
func (c *Context) EarliestNextUpdate() (time.Time, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var candidates []time.Time
	if c.info != nil {
		candidates = append(candidates, c.info.NextUpdate)
	}
	if c.ocsp != nil {
		if info, ok := c.ocsp.Result(); ok {
			candidates = append(candidates, info.NextUpdate)
		}
	}
	if c.crl != nil {
		if info, ok := c.crl.Result(); ok {
			candidates = append(candidates, info.NextUpdate)
		}
	}
	var earliest time.Time
	for _, t := range candidates {
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest, !earliest.IsZero()
}

// SetRevokedResult moves the context to DefinitiveRevoked. It is a no-op if
// the context is already revoked. Calling it on a context that has not
// started is illegal; debug builds panic.
func (c *Context) SetRevokedResult() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch c.state {
	case DefinitiveRevoked:
		return
	case NotStarted:
		illegalTransition(c.state, DefinitiveRevoked)
		return
	}
	c.state = DefinitiveRevoked
}

// begin moves a non-terminal context to the pending state for a source.
func (c *Context) begin(pending State, sub verifier) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state.Terminal() {
		return false
	}
	c.state = pending
	switch s := sub.(type) {
	case *OCSPContext:
		c.ocsp = s
	case *CRLContext:
		c.crl = s
	}
	return true
}

// finish records a verdict.
func (c *Context) finish(info ValidInfo) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state.Terminal() {
		return
	}
	c.info = &info
	switch info.Status {
	case StatusGood:
		c.state = DefinitiveValid
	case StatusRevoked:
		c.state = DefinitiveRevoked
	default:
		c.state = Indeterminate
	}
}

// fail records an unrecoverable failure.
func (c *Context) fail(err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state.Terminal() {
		return
	}
	c.err = err
	c.state = Failed
}

// giveUp marks the context indeterminate if it has not reached a verdict.
func (c *Context) giveUp() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = Indeterminate
}
