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
	"encoding/pem"
	"time"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// CRLContext verifies a certificate against the issuer's CRL.
type CRLContext struct {
	Fetcher Fetcher
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
	result
}

// Verify fetches the CRL, checks that the issuer signed it and that it is
// current, and looks up the certificate's serial number. The CRL may be DER
// or PEM encoded.
func (c *CRLContext) Verify(ctx context.Context, cert, issuer *x509.Certificate) (ValidInfo, error) {
	raw, err := c.Fetcher.Fetch(ctx, cert, issuer)
	if err != nil {
		return c.set(ValidInfo{}, serrors.JoinNoStack(ErrNetworkFailure, err, "source", SourceCRL))
	}
	if block, _ := pem.Decode(raw); block != nil && block.Type == "X509 CRL" {
		raw = block.Bytes
	}
	rl, err := x509.ParseRevocationList(raw)
	if err != nil {
		return c.set(ValidInfo{}, serrors.JoinNoStack(ErrParseFailure, err, "source", SourceCRL))
	}
	if err := rl.CheckSignatureFrom(issuer); err != nil {
		return c.set(ValidInfo{}, serrors.JoinNoStack(ErrParseFailure, err,
			"source", SourceCRL, "issuer", issuer.Subject.String()))
	}
	info := ValidInfo{
		Status:     StatusGood,
		Source:     SourceCRL,
		ThisUpdate: rl.ThisUpdate,
		NextUpdate: rl.NextUpdate,
	}
	if err := checkFresh(info, nowOr(c.Now)); err != nil {
		return c.set(ValidInfo{}, err)
	}
	for _, entry := range rl.RevokedCertificateEntries {
		if entry.SerialNumber != nil && entry.SerialNumber.Cmp(cert.SerialNumber) == 0 {
			info.Status = StatusRevoked
			info.RevokedAt = entry.RevocationTime
			break
		}
	}
	return c.set(info, nil)
}
