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

package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/storage/trust/dbtest"
	"github.com/securityd/securityd/private/storage/trust/fs"
)

var _ dbtest.TestableDB = (*TestBackend)(nil)

type TestBackend struct {
	*fs.Backend
	dir string
}

func (b *TestBackend) Prepare(t *testing.T, _ context.Context) {
	dir := b.dir
	if dir == "" {
		dir = t.TempDir()
	}
	backend, err := fs.New(dir)
	require.NoError(t, err)
	b.Backend = backend
}

func TestTrustDBSuite(t *testing.T) {
	dbtest.TestDB(t, &TestBackend{})
}

func TestReopen(t *testing.T) {
	dbtest.TestPersistence(t, &TestBackend{dir: t.TempDir()})
}

func TestStrayFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	b, err := fs.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz.rec"), []byte("x"), 0o600))
	key := trust.Key{Fingerprint: []byte{1}, PolicyOID: []byte{2}}
	require.NoError(t, b.WriteRecord(ctx, key, []byte{0, 0, 0, 1, 0, 0, 0, 2}))

	recs, err := b.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, key, recs[0].Key)

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
