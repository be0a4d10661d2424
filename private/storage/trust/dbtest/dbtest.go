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

// Package dbtest contains the conformance suite for trust.DB backends.
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/trust"
)

const timeout = 3 * time.Second

// TestableDB extends the trust DB interface with methods that are needed for
// testing.
type TestableDB interface {
	trust.DB
	// Prepare should reset the internal state so that the DB is empty and is
	// ready to be tested. Backends that keep a fixed location reopen it.
	Prepare(t *testing.T, ctx context.Context)
}

// TestDB should be used to test any implementation of the trust.DB
// interface. An implementation should have at least one test method that
// calls this suite.
func TestDB(t *testing.T, db TestableDB) {
	testCases := map[string]func(*testing.T, trust.DB){
		"read missing":          testReadMissing,
		"write and read":        testWriteRead,
		"overwrite":             testOverwrite,
		"records":               testRecords,
		"concurrent writes":     testConcurrentWrites,
		"store last write wins": testStoreLastWriteWins,
	}
	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			prepareCtx, cancelF := context.WithTimeout(context.Background(), 2*timeout)
			db.Prepare(t, prepareCtx)
			cancelF()
			defer db.Close()
			test(t, db)
		})
	}
}

// TestPersistence checks that records survive closing and reopening the
// backend. Prepare must reopen the same location.
func TestPersistence(t *testing.T, db TestableDB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()

	db.Prepare(t, ctx)
	key := trust.Key{Fingerprint: []byte("persist"), PolicyOID: trust.PolicySSL}
	rec := trust.Record{Version: trust.CurrentVersion, Decision: trust.Deny}
	require.NoError(t, db.WriteRecord(ctx, key, rec.Payload()))
	require.NoError(t, db.Close())

	db.Prepare(t, ctx)
	defer db.Close()
	raw, err := db.ReadRecord(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, rec.Payload(), raw)
}

func testReadMissing(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	_, err := db.ReadRecord(ctx, trust.Key{Fingerprint: []byte{1}, PolicyOID: []byte{2}})
	assert.ErrorIs(t, err, trust.ErrNotFound)
}

func testWriteRead(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	key := trust.Key{Fingerprint: []byte{0xde, 0xad}, PolicyOID: trust.PolicySSL}
	payload := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	require.NoError(t, db.WriteRecord(ctx, key, payload))
	raw, err := db.ReadRecord(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)

	other := trust.Key{Fingerprint: []byte{0xde, 0xad}, PolicyOID: trust.PolicySMIME}
	_, err = db.ReadRecord(ctx, other)
	assert.ErrorIs(t, err, trust.ErrNotFound)
}

func testOverwrite(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	key := trust.Key{Fingerprint: []byte{7}, PolicyOID: trust.PolicySSL}
	require.NoError(t, db.WriteRecord(ctx, key, []byte{0, 0, 0, 1, 0, 0, 0, 1}))
	require.NoError(t, db.WriteRecord(ctx, key, []byte{0, 0, 0, 1, 0, 0, 0, 2}))
	raw, err := db.ReadRecord(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 2}, raw)

	recs, err := db.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func testRecords(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	want := map[string][]byte{}
	for i := 0; i < 5; i++ {
		key := trust.Key{Fingerprint: []byte{byte(i), 0xff}, PolicyOID: trust.PolicyCodeSigning}
		payload := trust.Record{Version: trust.CurrentVersion, Decision: trust.Decision(i)}.Payload()
		require.NoError(t, db.WriteRecord(ctx, key, payload))
		want[key.String()] = payload
	}
	recs, err := db.Records(ctx)
	require.NoError(t, err)
	got := map[string][]byte{}
	for _, r := range recs {
		got[r.Key.String()] = r.Payload
	}
	assert.Equal(t, want, got)
}

func testConcurrentWrites(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := trust.Key{
				Fingerprint: []byte(fmt.Sprintf("cert-%d", i%2)),
				PolicyOID:   trust.PolicySSL,
			}
			payload := trust.Record{Version: trust.CurrentVersion, Decision: trust.Proceed}
			assert.NoError(t, db.WriteRecord(ctx, key, payload.Payload()))
		}(i)
	}
	wg.Wait()
	recs, err := db.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func testStoreLastWriteWins(t *testing.T, db trust.DB) {
	ctx, cancelF := context.WithTimeout(context.Background(), timeout)
	defer cancelF()
	s := trust.NewStore(noClose{db}, nil)
	fp := []byte("leaf")
	for _, d := range []trust.Decision{trust.Proceed, trust.Deny, trust.AskUser} {
		require.NoError(t, s.Assign(ctx, fp, trust.PolicySSL, d))
		got, err := s.Find(ctx, fp, trust.PolicySSL)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

// noClose keeps the store from closing the backend under test.
type noClose struct {
	trust.DB
}

func (noClose) Close() error { return nil }
