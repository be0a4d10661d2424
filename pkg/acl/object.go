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

package acl

import (
	"sync"

	"golang.org/x/crypto/cryptobyte"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
)

// Entry pairs a subject with the operations it authorizes.
type Entry struct {
	Tag        string
	Subject    Subject
	Operations Operation
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	if e.Subject != nil {
		c.Subject = e.Subject.Clone()
	}
	return c
}

// ObjectACL is the ordered list of entries that protects one object. The
// zero value is an empty ACL that denies everything. It is safe for
// concurrent use.
type ObjectACL struct {
	// Metrics is optional. It must be set before the ACL is used.
	Metrics *Metrics

	mtx     sync.RWMutex
	entries []Entry
}

// Add appends an entry. The tag must not be in use.
func (a *ObjectACL) Add(e Entry) error {
	if e.Subject == nil {
		return serrors.JoinNoStack(ErrBadFormat, nil, "tag", e.Tag, "reason", "nil subject")
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.indexLocked(e.Tag) >= 0 {
		return serrors.JoinNoStack(ErrDuplicateTag, nil, "tag", e.Tag)
	}
	a.entries = append(a.entries, e)
	return nil
}

// Remove removes the entry with the given tag.
func (a *ObjectACL) Remove(tag string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	i := a.indexLocked(tag)
	if i < 0 {
		return serrors.JoinNoStack(ErrNotFound, nil, "tag", tag)
	}
	a.entries = append(a.entries[:i:i], a.entries[i+1:]...)
	return nil
}

func (a *ObjectACL) indexLocked(tag string) int {
	for i, e := range a.entries {
		if e.Tag == tag {
			return i
		}
	}
	return -1
}

// Evaluate decides whether the context authorizes the requested operations.
// Entries are consulted in insertion order. The first entry that covers op
// and whose subject validates grants; later entries are not consulted.
func (a *ObjectACL) Evaluate(op Operation, ctx *Context) Decision {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	logger := log.FromCtx(ctx.ctx())
	for _, e := range a.entries {
		if !e.Operations.Covers(op) {
			continue
		}
		ok := e.Subject.Validate(ctx)
		a.Metrics.observeValidation(e.Subject, ok)
		if ok {
			logger.Debug("ACL entry granted", "tag", e.Tag, "op", op)
			a.Metrics.observeDecision(Granted)
			return Granted
		}
	}
	logger.Debug("ACL denied", "op", op, "entries", len(a.entries))
	a.Metrics.observeDecision(Denied)
	return Denied
}

// Entries returns a deep copy of the entries in evaluation order.
func (a *ObjectACL) Entries() []Entry {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	r := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		r = append(r, e.Clone())
	}
	return r
}

// Len returns the number of entries.
func (a *ObjectACL) Len() int {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	return len(a.entries)
}

// Export serializes the whole ACL including private subject material.
func (a *ObjectACL) Export() ([]byte, error) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	var b cryptobyte.Builder
	b.AddUint32(BlobVersion)
	b.AddUint32(uint32(len(a.entries)))
	for _, e := range a.entries {
		pub, priv, err := e.Subject.ExportBlob()
		if err != nil {
			return nil, serrors.Wrap("exporting entry", err, "tag", e.Tag)
		}
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes([]byte(e.Tag))
		})
		b.AddUint32(uint32(e.Operations))
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(pub) })
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(priv) })
	}
	raw, err := b.Bytes()
	if err != nil {
		return nil, serrors.Wrap("encoding ACL", err)
	}
	return raw, nil
}

// ImportObjectACL parses an ACL produced by Export. A nil registry selects
// the default registry.
func ImportObjectACL(reg *Registry, raw []byte) (*ObjectACL, error) {
	if reg == nil {
		reg = DefaultRegistry
	}
	s := cryptobyte.String(raw)
	var version, n uint32
	if !s.ReadUint32(&version) || !s.ReadUint32(&n) {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "truncated header")
	}
	if version != BlobVersion {
		return nil, serrors.JoinNoStack(ErrUnsupportedVersion, nil,
			"expected", BlobVersion, "actual", version)
	}
	a := &ObjectACL{}
	for i := uint32(0); i < n; i++ {
		var tag, pub, priv cryptobyte.String
		var ops uint32
		if !s.ReadUint16LengthPrefixed(&tag) || !s.ReadUint32(&ops) ||
			!s.ReadUint24LengthPrefixed(&pub) || !s.ReadUint24LengthPrefixed(&priv) {
			return nil, serrors.JoinNoStack(ErrBadFormat, nil,
				"reason", "truncated entry", "index", i)
		}
		sub, err := reg.ImportBlob(version, pub, priv)
		if err != nil {
			return nil, serrors.Wrap("importing entry", err, "index", i)
		}
		if err := a.Add(Entry{Tag: string(tag), Subject: sub, Operations: Operation(ops)}); err != nil {
			return nil, err
		}
	}
	if !s.Empty() {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "trailing data")
	}
	return a, nil
}
