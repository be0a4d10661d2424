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

package trust_test

import (
	"context"
	"crypto/x509"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/securityd/securityd/pkg/private/xtest"
	"github.com/securityd/securityd/pkg/trust"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

// memDB is an in-memory trust.DB.
type memDB struct {
	mtx      sync.Mutex
	records  map[string]trust.StoredRecord
	readErr  error
	writeErr error
	reads    int
}

func newMemDB() *memDB {
	return &memDB{records: map[string]trust.StoredRecord{}}
}

func (db *memDB) ReadRecord(_ context.Context, key trust.Key) ([]byte, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.reads++
	if db.readErr != nil {
		return nil, db.readErr
	}
	r, ok := db.records[key.String()]
	if !ok {
		return nil, trust.ErrNotFound
	}
	return r.Payload, nil
}

func (db *memDB) WriteRecord(_ context.Context, key trust.Key, payload []byte) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.writeErr != nil {
		return db.writeErr
	}
	db.records[key.String()] = trust.StoredRecord{Key: key, Payload: payload}
	return nil
}

func (db *memDB) Records(context.Context) ([]trust.StoredRecord, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	var r []trust.StoredRecord
	for _, v := range db.records {
		r = append(r, v)
	}
	return r, nil
}

func (db *memDB) Close() error { return nil }

var (
	fpA = []byte{0xaa, 0x01}
	fpB = []byte{0xbb, 0x02}
)

func TestFindMissing(t *testing.T) {
	s := trust.NewStore(newMemDB(), nil)
	d, err := s.Find(context.Background(), fpA, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Unspecified, d)
}

func TestAssignFind(t *testing.T) {
	decisions := []trust.Decision{
		trust.Unspecified, trust.Proceed, trust.Deny,
		trust.ConfirmedByUser, trust.AskUser, trust.Invalid,
	}
	for _, withCache := range []bool{false, true} {
		var opts []trust.Option
		if withCache {
			opts = append(opts, trust.WithCache(trust.NewCache(time.Minute)))
		}
		s := trust.NewStore(newMemDB(), nil, opts...)
		ctx := context.Background()
		for _, d := range decisions {
			require.NoError(t, s.Assign(ctx, fpA, trust.PolicySSL, d))
			got, err := s.Find(ctx, fpA, trust.PolicySSL)
			require.NoError(t, err)
			assert.Equal(t, d, got, "cache=%t", withCache)
		}
		// Other policies and certificates are independent.
		got, err := s.Find(ctx, fpA, trust.PolicySMIME)
		require.NoError(t, err)
		assert.Equal(t, trust.Unspecified, got)
		got, err = s.Find(ctx, fpB, trust.PolicySSL)
		require.NoError(t, err)
		assert.Equal(t, trust.Unspecified, got)
	}
}

func TestLastWriteWins(t *testing.T) {
	s := trust.NewStore(newMemDB(), nil, trust.WithCache(trust.NewCache(time.Minute)))
	ctx := context.Background()
	require.NoError(t, s.Assign(ctx, fpA, trust.PolicySSL, trust.Deny))
	require.NoError(t, s.Assign(ctx, fpA, trust.PolicySSL, trust.Proceed))
	d, err := s.Find(ctx, fpA, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Proceed, d)

	recs, skipped, err := s.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, recs, 1)
	assert.Equal(t, trust.Proceed, recs[0].Decision)
}

// stallingDB blocks the first ReadRecord after it has read the backend until
// release is closed.
type stallingDB struct {
	*memDB
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (db *stallingDB) ReadRecord(ctx context.Context, key trust.Key) ([]byte, error) {
	raw, err := db.memDB.ReadRecord(ctx, key)
	db.once.Do(func() {
		close(db.read)
		<-db.release
	})
	return raw, err
}

func TestConcurrentFindDoesNotCacheSupersededDecision(t *testing.T) {
	ctx := context.Background()
	db := &stallingDB{
		memDB:   newMemDB(),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
	old := trust.Record{
		Version:     trust.CurrentVersion,
		Fingerprint: fpA,
		PolicyOID:   trust.PolicySSL,
		Decision:    trust.Deny,
	}
	require.NoError(t, db.memDB.WriteRecord(ctx, old.Key(), old.Payload()))
	s := trust.NewStore(db, nil, trust.WithCache(trust.NewCache(time.Minute)))

	found := make(chan trust.Decision)
	go func() {
		d, err := s.Find(ctx, fpA, trust.PolicySSL)
		assert.NoError(t, err)
		found <- d
	}()
	<-db.read
	require.NoError(t, s.Assign(ctx, fpA, trust.PolicySSL, trust.Proceed))
	close(db.release)
	assert.Equal(t, trust.Deny, <-found)

	d, err := s.Find(ctx, fpA, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Proceed, d)
}

func TestCacheAvoidsReads(t *testing.T) {
	db := newMemDB()
	s := trust.NewStore(db, nil, trust.WithCache(trust.NewCache(time.Minute)))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Find(ctx, fpA, trust.PolicySSL)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, db.reads)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	testCases := map[string]struct {
		prepare func(db *memDB)
		run     func(s *trust.Store) error
		target  error
	}{
		"read failure is not unspecified": {
			prepare: func(db *memDB) { db.readErr = errors.New("disk on fire") },
			run: func(s *trust.Store) error {
				_, err := s.Find(ctx, fpA, trust.PolicySSL)
				return err
			},
			target: trust.ErrIO,
		},
		"write failure": {
			prepare: func(db *memDB) { db.writeErr = errors.New("read-only fs") },
			run: func(s *trust.Store) error {
				return s.Assign(ctx, fpA, trust.PolicySSL, trust.Deny)
			},
			target: trust.ErrIO,
		},
		"put with old version": {
			prepare: func(*memDB) {},
			run: func(s *trust.Store) error {
				return s.Put(ctx, trust.Record{
					Version: 0, Fingerprint: fpA, PolicyOID: trust.PolicySSL,
				})
			},
			target: trust.ErrVersionMismatch,
		},
		"stored record with unknown version": {
			prepare: func(db *memDB) {
				key := trust.Key{Fingerprint: fpA, PolicyOID: trust.PolicySSL}
				db.records[key.String()] = trust.StoredRecord{
					Key:     key,
					Payload: []byte{0, 0, 0, 9, 0, 0, 0, 1},
				}
			},
			run: func(s *trust.Store) error {
				_, err := s.Find(ctx, fpA, trust.PolicySSL)
				return err
			},
			target: trust.ErrVersionMismatch,
		},
		"truncated payload": {
			prepare: func(db *memDB) {
				key := trust.Key{Fingerprint: fpA, PolicyOID: trust.PolicySSL}
				db.records[key.String()] = trust.StoredRecord{Key: key, Payload: []byte{0, 0}}
			},
			run: func(s *trust.Store) error {
				_, err := s.Find(ctx, fpA, trust.PolicySSL)
				return err
			},
			target: trust.ErrIO,
		},
		"unknown decision": {
			prepare: func(*memDB) {},
			run: func(s *trust.Store) error {
				return s.Assign(ctx, fpA, trust.PolicySSL, trust.Decision(42))
			},
			target: trust.ErrInvalidRecord,
		},
		"empty fingerprint": {
			prepare: func(*memDB) {},
			run: func(s *trust.Store) error {
				return s.Assign(ctx, nil, trust.PolicySSL, trust.Deny)
			},
			target: trust.ErrInvalidRecord,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			db := newMemDB()
			tc.prepare(db)
			err := tc.run(trust.NewStore(db, nil))
			assert.ErrorIs(t, err, tc.target)
		})
	}
}

func TestPayload(t *testing.T) {
	r := trust.Record{Version: trust.CurrentVersion, Decision: trust.AskUser}
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 4}, r.Payload())

	key := trust.Key{Fingerprint: fpA, PolicyOID: trust.PolicySSL}
	got, err := trust.DecodePayload(key, r.Payload())
	require.NoError(t, err)
	assert.Equal(t, trust.AskUser, got.Decision)
	assert.Equal(t, fpA, got.Fingerprint)
}

func TestPolicyOID(t *testing.T) {
	raw, err := trust.EncodePolicyOID("1.2.840.113635.100.1.3")
	require.NoError(t, err)
	assert.Equal(t, trust.PolicySSL, raw)
	assert.Equal(t, "1.2.840.113635.100.1.3", trust.FormatPolicyOID(raw))
	assert.Equal(t, "0102", trust.FormatPolicyOID([]byte{1, 2}))

	for _, invalid := range []string{"", "1", "1.x", "1.-2"} {
		_, err := trust.EncodePolicyOID(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestParseDecision(t *testing.T) {
	d, err := trust.ParseDecision("Confirmed_By_User")
	require.NoError(t, err)
	assert.Equal(t, trust.ConfirmedByUser, d)
	_, err = trust.ParseDecision("maybe")
	assert.Error(t, err)
}

func TestCopyRootCertificatesSingleFlight(t *testing.T) {
	ca := xtest.NewRootCA(t, "root")
	var loads atomic.Int32
	release := make(chan struct{})
	loader := trust.RootLoaderFunc(func(context.Context) ([]*x509.Certificate, error) {
		loads.Add(1)
		<-release
		return []*x509.Certificate{ca.Cert}, nil
	})
	s := trust.NewStore(newMemDB(), loader)

	const n = 16
	results := make([]*trust.RootAnchorSet, n)
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			set, err := s.CopyRootCertificates(context.Background())
			assert.NoError(t, err)
			results[i] = set
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, results[0].Equal(r))
		assert.True(t, r.Contains(ca.Cert))
	}

	// Further calls use the cached set.
	_, err := s.CopyRootCertificates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestRefreshRootCertificates(t *testing.T) {
	first, second := xtest.NewRootCA(t, "first"), xtest.NewRootCA(t, "second")
	current := []*x509.Certificate{first.Cert}
	var fail bool
	loader := trust.RootLoaderFunc(func(context.Context) ([]*x509.Certificate, error) {
		if fail {
			return nil, errors.New("unavailable")
		}
		return current, nil
	})
	s := trust.NewStore(newMemDB(), loader)
	ctx := context.Background()

	set, err := s.CopyRootCertificates(ctx)
	require.NoError(t, err)
	assert.True(t, set.Contains(first.Cert))

	current = []*x509.Certificate{second.Cert}
	set, err = s.RefreshRootCertificates(ctx)
	require.NoError(t, err)
	assert.False(t, set.Contains(first.Cert))
	assert.True(t, set.Contains(second.Cert))

	fail = true
	_, err = s.RefreshRootCertificates(ctx)
	assert.Error(t, err)
	set, err = s.CopyRootCertificates(ctx)
	require.NoError(t, err)
	assert.True(t, set.Contains(second.Cert))
}

func TestFailedLoadIsRetried(t *testing.T) {
	var calls int
	loader := trust.RootLoaderFunc(func(context.Context) ([]*x509.Certificate, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return nil, nil
	})
	s := trust.NewStore(newMemDB(), loader)
	_, err := s.CopyRootCertificates(context.Background())
	assert.Error(t, err)
	set, err := s.CopyRootCertificates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 2, calls)
}

func TestEffectiveDecision(t *testing.T) {
	ca := xtest.NewRootCA(t, "root")
	leaf := ca.NewLeaf(t, "leaf", 7)
	loader := trust.RootLoaderFunc(func(context.Context) ([]*x509.Certificate, error) {
		return []*x509.Certificate{ca.Cert}, nil
	})
	s := trust.NewStore(newMemDB(), loader)
	ctx := context.Background()

	d, err := s.EffectiveDecision(ctx, ca.Cert, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Proceed, d)

	d, err = s.EffectiveDecision(ctx, leaf, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Unspecified, d)

	require.NoError(t, s.Assign(ctx, trust.Fingerprint(ca.Cert), trust.PolicySSL, trust.Deny))
	d, err = s.EffectiveDecision(ctx, ca.Cert, trust.PolicySSL)
	require.NoError(t, err)
	assert.Equal(t, trust.Deny, d)
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	ca := xtest.NewRootCA(t, "root")
	other := xtest.NewRootCA(t, "other")
	leaf := ca.NewLeaf(t, "leaf", 3)

	xtest.WritePEM(t, dir, "a.pem", ca.Cert)
	xtest.WritePEM(t, dir, "b.crt", other.Cert, ca.Cert)
	leafFile := xtest.WritePEM(t, dir, "c.pem", leaf)
	xtest.WritePEM(t, dir, "ignored.txt", other.Cert)
	garbage := xtest.WritePEM(t, dir, "d.der")

	res, certs, err := trust.DirLoader{Dir: dir}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Loaded, 2)
	assert.Contains(t, res.Ignored, leafFile)
	assert.Contains(t, res.Ignored, garbage)

	set := trust.NewRootAnchorSet(certs)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(ca.Cert))
	assert.True(t, set.Contains(other.Cert))
	assert.Len(t, set.DER(), 2)

	_, _, err = trust.DirLoader{Dir: dir + "/missing"}.Load(context.Background())
	assert.Error(t, err)
}
