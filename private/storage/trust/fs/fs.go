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

// Package fs implements the trust settings backend as one file per record.
//
// Each record lives in <dir>/<hex fingerprint>.<hex policy OID>.rec. Writes
// go to a temporary file in the same directory that is synced and then
// renamed over the record, so a record is always either the old or the new
// payload.
package fs

import (
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/storage/db"
)

const suffix = ".rec"

var _ trust.DB = (*Backend)(nil)

// Backend is the file system backend.
type Backend struct {
	dir string
}

// New creates the backend rooted at dir. The directory is created if it does
// not exist.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, serrors.Wrap("creating trust directory", err, "dir", dir)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) file(key trust.Key) string {
	return filepath.Join(b.dir,
		hex.EncodeToString(key.Fingerprint)+"."+hex.EncodeToString(key.PolicyOID)+suffix)
}

// ReadRecord implements trust.DB.
func (b *Backend) ReadRecord(ctx context.Context, key trust.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(b.file(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, trust.ErrNotFound
	}
	if err != nil {
		return nil, db.NewReadError("reading trust record", err, "key", key)
	}
	return raw, nil
}

// WriteRecord implements trust.DB.
func (b *Backend) WriteRecord(ctx context.Context, key trust.Key, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return db.NewWriteError("creating temporary file", err, "key", key)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	if _, err := tmp.Write(payload); err != nil {
		cleanup()
		return db.NewWriteError("writing temporary file", err, "key", key)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return db.NewWriteError("syncing temporary file", err, "key", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return db.NewWriteError("closing temporary file", err, "key", key)
	}
	if err := os.Rename(tmp.Name(), b.file(key)); err != nil {
		os.Remove(tmp.Name())
		return db.NewWriteError("replacing trust record", err, "key", key)
	}
	return nil
}

// Records implements trust.DB. Files that do not follow the naming scheme
// are skipped.
func (b *Backend) Records(ctx context.Context) ([]trust.StoredRecord, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, db.NewReadError("listing trust directory", err, "dir", b.dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var res []trust.StoredRecord
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, ok := parseName(name)
		if !ok {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(b.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, db.NewReadError("reading trust record", err, "file", name)
		}
		res = append(res, trust.StoredRecord{Key: key, Payload: raw})
	}
	return res, nil
}

func parseName(name string) (trust.Key, bool) {
	fp, oid, ok := strings.Cut(strings.TrimSuffix(name, suffix), ".")
	if !ok {
		return trust.Key{}, false
	}
	var err error
	var key trust.Key
	if key.Fingerprint, err = hex.DecodeString(fp); err != nil || len(key.Fingerprint) == 0 {
		return trust.Key{}, false
	}
	if key.PolicyOID, err = hex.DecodeString(oid); err != nil || len(key.PolicyOID) == 0 {
		return trust.Key{}, false
	}
	return key, true
}

// Close implements trust.DB. It is a no-op.
func (b *Backend) Close() error {
	return nil
}
