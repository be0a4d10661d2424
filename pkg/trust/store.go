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

package trust

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
)

// StoredRecord is a raw record as kept by a backend.
type StoredRecord struct {
	Key     Key
	Payload []byte
}

// DB is the storage backend of the trust store. Writes are all-or-nothing.
type DB interface {
	// ReadRecord returns the payload stored for key. It returns an error
	// wrapping ErrNotFound if no record exists.
	ReadRecord(ctx context.Context, key Key) ([]byte, error)
	// WriteRecord creates or replaces the payload stored for key.
	WriteRecord(ctx context.Context, key Key, payload []byte) error
	// Records returns all stored records.
	Records(ctx context.Context) ([]StoredRecord, error)
	io.Closer
}

// Option configures a Store.
type Option func(*Store)

// WithCache enables the read-through cache for Find.
func WithCache(c *cache.Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// Store is the trust settings store.
type Store struct {
	db    DB
	roots RootLoader
	cache *cache.Cache

	// writeMtx serializes writes.
	writeMtx sync.Mutex
	// cacheMtx guards gen and every cache update. gen counts completed
	// writes; a Find only fills the cache if no write completed while it
	// was reading the backend.
	cacheMtx sync.Mutex
	gen      uint64

	rootsMtx sync.RWMutex
	anchors  *RootAnchorSet
	group    singleflight.Group
}

// NewStore creates a store. The root loader may be nil, in which case the
// anchor set is empty.
func NewStore(db DB, roots RootLoader, opts ...Option) *Store {
	s := &Store{db: db, roots: roots}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewCache creates a Find cache with the given expiration.
func NewCache(expiration time.Duration) *cache.Cache {
	return cache.New(expiration, time.Minute)
}

// Find returns the decision stored for the pair, or Unspecified if there is
// none.
func (s *Store) Find(ctx context.Context, fingerprint, policyOID []byte) (Decision, error) {
	key := Key{Fingerprint: fingerprint, PolicyOID: policyOID}
	var gen uint64
	if s.cache != nil {
		if d, ok := s.cache.Get(key.String()); ok {
			return d.(Decision), nil
		}
		s.cacheMtx.Lock()
		gen = s.gen
		s.cacheMtx.Unlock()
	}
	raw, err := s.db.ReadRecord(ctx, key)
	if errors.Is(err, ErrNotFound) {
		s.fill(gen, key, Unspecified)
		return Unspecified, nil
	}
	if err != nil {
		return Unspecified, ioError("reading trust record", err, key)
	}
	r, err := DecodePayload(key, raw)
	if err != nil {
		return Unspecified, err
	}
	s.fill(gen, key, r.Decision)
	return r.Decision, nil
}

// Assign stores the decision for the pair, replacing any previous one.
func (s *Store) Assign(ctx context.Context, fingerprint, policyOID []byte, d Decision) error {
	return s.Put(ctx, Record{
		Version:     CurrentVersion,
		Fingerprint: fingerprint,
		PolicyOID:   policyOID,
		Decision:    d,
	})
}

// Put stores a record. The record version must be CurrentVersion.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.Version != CurrentVersion {
		return serrors.JoinNoStack(ErrVersionMismatch, nil,
			"expected", CurrentVersion, "actual", r.Version)
	}
	if len(r.Fingerprint) == 0 || len(r.PolicyOID) == 0 {
		return serrors.JoinNoStack(ErrInvalidRecord, nil, "reason", "empty key")
	}
	if !r.Decision.Valid() {
		return serrors.JoinNoStack(ErrInvalidRecord, nil, "decision", r.Decision)
	}
	key := r.Key()

	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()
	err := s.db.WriteRecord(ctx, key, r.Payload())
	s.written(key, r.Decision, err == nil)
	if err != nil {
		return ioError("writing trust record", err, key)
	}
	log.FromCtx(ctx).Debug("Assigned trust decision", "key", key, "decision", r.Decision)
	return nil
}

// Records returns all valid records. Records with an unsupported version are
// skipped and reported in the returned list of errors.
func (s *Store) Records(ctx context.Context) ([]Record, serrors.List, error) {
	stored, err := s.db.Records(ctx)
	if err != nil {
		return nil, nil, ioError("listing trust records", err, Key{})
	}
	var recs []Record
	var skipped serrors.List
	for _, sr := range stored {
		r, err := DecodePayload(sr.Key, sr.Payload)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		recs = append(recs, r)
	}
	return recs, skipped, nil
}

// fill caches a decision read from the backend unless a write completed
// since gen was sampled.
func (s *Store) fill(gen uint64, key Key, d Decision) {
	if s.cache == nil {
		return
	}
	s.cacheMtx.Lock()
	defer s.cacheMtx.Unlock()
	if s.gen == gen {
		s.cache.Set(key.String(), d, cache.DefaultExpiration)
	}
}

// written records a completed write. A failed write leaves the stored state
// unknown, so the entry is dropped instead of updated.
func (s *Store) written(key Key, d Decision, ok bool) {
	if s.cache == nil {
		return
	}
	s.cacheMtx.Lock()
	defer s.cacheMtx.Unlock()
	s.gen++
	if ok {
		s.cache.Set(key.String(), d, cache.DefaultExpiration)
	} else {
		s.cache.Delete(key.String())
	}
}

// CopyRootCertificates returns the root anchors, loading them on first use.
// Concurrent first callers share a single load. A failed load is not cached.
func (s *Store) CopyRootCertificates(ctx context.Context) (*RootAnchorSet, error) {
	s.rootsMtx.RLock()
	anchors := s.anchors
	s.rootsMtx.RUnlock()
	if anchors != nil {
		return anchors, nil
	}
	v, err, _ := s.group.Do("roots", func() (any, error) {
		s.rootsMtx.RLock()
		anchors := s.anchors
		s.rootsMtx.RUnlock()
		if anchors != nil {
			return anchors, nil
		}
		return s.loadRoots(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RootAnchorSet), nil
}

// RefreshRootCertificates reloads the root anchors unconditionally. On
// failure the previous anchors stay in place.
func (s *Store) RefreshRootCertificates(ctx context.Context) (*RootAnchorSet, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.loadRoots(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RootAnchorSet), nil
}

func (s *Store) loadRoots(ctx context.Context) (*RootAnchorSet, error) {
	// The load is shared between callers; one caller giving up must not
	// abort it for the others.
	ctx = context.WithoutCancel(ctx)
	var certs []*x509.Certificate
	if s.roots != nil {
		var err error
		if certs, err = s.roots.LoadRoots(ctx); err != nil {
			return nil, serrors.Wrap("loading root anchors", err)
		}
	}
	anchors := NewRootAnchorSet(certs)
	s.rootsMtx.Lock()
	s.anchors = anchors
	s.rootsMtx.Unlock()
	log.FromCtx(ctx).Info("Loaded root anchors", "count", anchors.Len())
	return anchors, nil
}

// EffectiveDecision returns the explicit decision for the certificate if
// there is one. Otherwise root anchors are trusted with Proceed and any
// other certificate yields Unspecified.
func (s *Store) EffectiveDecision(
	ctx context.Context,
	cert *x509.Certificate,
	policyOID []byte,
) (Decision, error) {

	d, err := s.Find(ctx, Fingerprint(cert), policyOID)
	if err != nil || d != Unspecified {
		return d, err
	}
	anchors, err := s.CopyRootCertificates(ctx)
	if err != nil {
		return Unspecified, err
	}
	if anchors.Contains(cert) {
		return Proceed, nil
	}
	return Unspecified, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.db.Close()
}

func ioError(msg string, err error, key Key) error {
	if errors.Is(err, ErrIO) {
		return serrors.Wrap(msg, err, "key", key)
	}
	return serrors.Join(ErrIO, serrors.WrapNoStack(msg, err), "key", key)
}
