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
	"crypto/sha256"
	"crypto/x509"
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// Status is the revocation status reported by a source.
type Status int

const (
	StatusUnknown Status = iota
	StatusGood
	StatusRevoked
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Source identifies where validity information came from.
type Source int

const (
	SourceNone Source = iota
	SourceOCSP
	SourceCRL
)

func (s Source) String() string {
	switch s {
	case SourceOCSP:
		return "ocsp"
	case SourceCRL:
		return "crl"
	default:
		return "none"
	}
}

// ValidInfo is a snapshot of the revocation status of one certificate.
type ValidInfo struct {
	Status     Status
	Source     Source
	RevokedAt  time.Time
	ThisUpdate time.Time
	// NextUpdate is the time newer information is expected. Zero means
	// unbounded.
	NextUpdate time.Time
}

// Expired reports whether the information is stale at now.
func (v ValidInfo) Expired(now time.Time) bool {
	return !v.NextUpdate.IsZero() && !now.Before(v.NextUpdate)
}

type infoKey struct {
	issuer [sha256.Size]byte
	serial string
}

func keyOf(cert, issuer *x509.Certificate) infoKey {
	return infoKey{
		issuer: sha256.Sum256(issuer.Raw),
		serial: cert.SerialNumber.String(),
	}
}

// ValidInfoDB is the local validity database. It keeps a bounded number of
// definitive results keyed by issuer and serial number. Entries expire at
// their next update time.
type ValidInfoDB struct {
	cache *arc.ARCCache[infoKey, ValidInfo]
	now   func() time.Time
}

// NewValidInfoDB creates a database holding at most size entries.
func NewValidInfoDB(size int) (*ValidInfoDB, error) {
	cache, err := arc.NewARC[infoKey, ValidInfo](size)
	if err != nil {
		return nil, serrors.Wrap("creating validity cache", err, "size", size)
	}
	return &ValidInfoDB{cache: cache, now: time.Now}, nil
}

// Lookup returns the unexpired information for the certificate.
func (db *ValidInfoDB) Lookup(cert, issuer *x509.Certificate) (ValidInfo, bool) {
	key := keyOf(cert, issuer)
	info, ok := db.cache.Get(key)
	if !ok {
		return ValidInfo{}, false
	}
	if info.Expired(db.now()) {
		db.cache.Remove(key)
		return ValidInfo{}, false
	}
	return info, true
}

// Store records definitive, time bounded information. Anything else is
// ignored.
func (db *ValidInfoDB) Store(cert, issuer *x509.Certificate, info ValidInfo) {
	if info.Status == StatusUnknown || info.NextUpdate.IsZero() || info.Expired(db.now()) {
		return
	}
	db.cache.Add(keyOf(cert, issuer), info)
}

// DeleteExpired removes all expired entries.
func (db *ValidInfoDB) DeleteExpired(ctx context.Context) (int, error) {
	now := db.now()
	var deleted int
	for _, key := range db.cache.Keys() {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if info, ok := db.cache.Peek(key); ok && info.Expired(now) {
			db.cache.Remove(key)
			deleted++
		}
	}
	return deleted, nil
}

func (db *ValidInfoDB) Len() int {
	return db.cache.Len()
}
