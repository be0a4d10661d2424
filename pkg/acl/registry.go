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

	"github.com/securityd/securityd/pkg/private/serrors"
)

// BlobVersion is the version of the subject blob format written by
// ExportBlob.
const BlobVersion uint32 = 1

// maxNesting bounds the depth of nested subjects accepted from lists and
// blobs.
const maxNesting = 8

// Subject is a single ACL subject.
type Subject interface {
	// Kind returns the variant of the subject.
	Kind() Kind
	// Validate reports whether the context satisfies the subject. It never
	// fails on malformed samples; they simply do not validate.
	Validate(ctx *Context) bool
	// List returns the canonical list of the subject. Secret material is not
	// part of the list.
	List() List
	// ExportBlob returns the public and private blob of the subject.
	ExportBlob() (public, private []byte, err error)
	// Clone returns an independent deep copy.
	Clone() Subject
	// Equal reports whether other is the same subject including secrets.
	Equal(other Subject) bool
}

// Maker creates subjects of one kind.
type Maker struct {
	// FromList builds a subject from its canonical list. The list includes
	// the kind word.
	FromList func(r *Registry, l List, depth int) (Subject, error)
	// FromBlob builds a subject from the blob bodies that follow the kind
	// word. Implementations must consume both strings completely.
	FromBlob func(r *Registry, public, private *cryptobyte.String, depth int) (Subject, error)
}

// Registry maps subject kinds to makers.
type Registry struct {
	mtx    sync.RWMutex
	makers map[Kind]Maker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{makers: make(map[Kind]Maker)}
}

// Register registers the maker for kind. It panics if the kind is already
// registered.
func (r *Registry) Register(kind Kind, m Maker) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.makers[kind]; ok {
		panic(serrors.New("subject kind registered twice", "kind", kind).Error())
	}
	r.makers[kind] = m
}

// Known reports whether kind is registered.
func (r *Registry) Known(kind Kind) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, ok := r.makers[kind]
	return ok
}

func (r *Registry) maker(kind Kind) (Maker, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	m, ok := r.makers[kind]
	if !ok {
		return Maker{}, serrors.JoinNoStack(ErrUnknownKind, nil, "kind", kind)
	}
	return m, nil
}

// FromList builds a subject from its canonical list.
func (r *Registry) FromList(l List) (Subject, error) {
	return r.fromList(l, 0)
}

func (r *Registry) fromList(l List, depth int) (Subject, error) {
	if depth > maxNesting {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "nesting too deep")
	}
	kind, err := l.Kind()
	if err != nil {
		return nil, err
	}
	m, err := r.maker(kind)
	if err != nil {
		return nil, err
	}
	return m.FromList(r, l, depth)
}

// ImportBlob builds a subject from a blob pair produced by ExportBlob.
func (r *Registry) ImportBlob(version uint32, public, private []byte) (Subject, error) {
	if version != BlobVersion {
		return nil, serrors.JoinNoStack(ErrUnsupportedVersion, nil,
			"expected", BlobVersion, "actual", version)
	}
	pub, priv := cryptobyte.String(public), cryptobyte.String(private)
	s, err := r.importBlob(&pub, &priv, 0)
	if err != nil {
		return nil, err
	}
	if !pub.Empty() || !priv.Empty() {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "trailing data")
	}
	return s, nil
}

func (r *Registry) importBlob(pub, priv *cryptobyte.String, depth int) (Subject, error) {
	if depth > maxNesting {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "nesting too deep")
	}
	var kind uint32
	if !pub.ReadUint32(&kind) {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "missing kind")
	}
	m, err := r.maker(Kind(kind))
	if err != nil {
		return nil, err
	}
	return m.FromBlob(r, pub, priv, depth)
}

// DefaultRegistry contains all subject kinds of this package.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(KindAny, anyMaker)
	DefaultRegistry.Register(KindComment, commentMaker)
	DefaultRegistry.Register(KindPassword, passwordMaker(KindPassword))
	DefaultRegistry.Register(KindProtectedPassword, passwordMaker(KindProtectedPassword))
	DefaultRegistry.Register(KindThreshold, thresholdMaker)
	DefaultRegistry.Register(KindKey, keyMaker)
	DefaultRegistry.Register(KindProcess, processMaker)
}

// Register registers a maker with the default registry.
func Register(kind Kind, m Maker) {
	DefaultRegistry.Register(kind, m)
}

// FromList builds a subject from its canonical list using the default
// registry.
func FromList(l List) (Subject, error) {
	return DefaultRegistry.FromList(l)
}

// ImportBlob builds a subject from a blob pair using the default registry.
func ImportBlob(version uint32, public, private []byte) (Subject, error) {
	return DefaultRegistry.ImportBlob(version, public, private)
}

// exportBlob writes the kind word followed by the public body, and the
// private body.
func exportBlob(
	kind Kind,
	public func(b *cryptobyte.Builder),
	private func(b *cryptobyte.Builder),
) ([]byte, []byte, error) {

	var pb, sb cryptobyte.Builder
	pb.AddUint32(uint32(kind))
	if public != nil {
		public(&pb)
	}
	if private != nil {
		private(&sb)
	}
	pub, err := pb.Bytes()
	if err != nil {
		return nil, nil, serrors.Wrap("encoding public blob", err, "kind", kind)
	}
	priv, err := sb.Bytes()
	if err != nil {
		return nil, nil, serrors.Wrap("encoding private blob", err, "kind", kind)
	}
	return pub, priv, nil
}

func addBytes16(b *cryptobyte.Builder, v []byte) {
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(v)
	})
}

func readBytes16(s *cryptobyte.String) ([]byte, bool) {
	var v cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&v) {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func badBlob(kind Kind) error {
	return serrors.JoinNoStack(ErrBadFormat, nil, "kind", kind, "reason", "truncated blob")
}
