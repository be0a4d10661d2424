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
	"bytes"

	"golang.org/x/crypto/cryptobyte"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/secret"
)

// AnySubject validates unconditionally.
type AnySubject struct{}

func (AnySubject) Kind() Kind               { return KindAny }
func (AnySubject) Validate(*Context) bool   { return true }
func (AnySubject) List() List               { return List{Word(uint32(KindAny))} }
func (AnySubject) Clone() Subject           { return AnySubject{} }
func (AnySubject) Equal(other Subject) bool { _, ok := other.(AnySubject); return ok }

func (AnySubject) ExportBlob() ([]byte, []byte, error) {
	return exportBlob(KindAny, nil, nil)
}

var anyMaker = Maker{
	FromList: func(_ *Registry, l List, _ int) (Subject, error) {
		if err := newListReader(l, KindAny).done(); err != nil {
			return nil, err
		}
		return AnySubject{}, nil
	},
	FromBlob: func(_ *Registry, _, _ *cryptobyte.String, _ int) (Subject, error) {
		return AnySubject{}, nil
	},
}

// CommentSubject never validates. It carries an opaque comment, for example
// a human readable description of the ACL.
type CommentSubject struct {
	Comment []byte
}

func (s *CommentSubject) Kind() Kind             { return KindComment }
func (s *CommentSubject) Validate(*Context) bool { return false }

func (s *CommentSubject) List() List {
	return List{Word(uint32(KindComment)), Datum(s.Comment)}
}

func (s *CommentSubject) Clone() Subject {
	return &CommentSubject{Comment: bytes.Clone(s.Comment)}
}

func (s *CommentSubject) Equal(other Subject) bool {
	o, ok := other.(*CommentSubject)
	return ok && bytes.Equal(s.Comment, o.Comment)
}

func (s *CommentSubject) ExportBlob() ([]byte, []byte, error) {
	return exportBlob(KindComment, func(b *cryptobyte.Builder) {
		addBytes16(b, s.Comment)
	}, nil)
}

var commentMaker = Maker{
	FromList: func(_ *Registry, l List, _ int) (Subject, error) {
		r := newListReader(l, KindComment)
		s := &CommentSubject{}
		if r.more() {
			s.Comment = bytes.Clone(r.datum())
		}
		if err := r.done(); err != nil {
			return nil, err
		}
		return s, nil
	},
	FromBlob: func(_ *Registry, pub, _ *cryptobyte.String, _ int) (Subject, error) {
		c, ok := readBytes16(pub)
		if !ok {
			return nil, badBlob(KindComment)
		}
		if len(c) == 0 {
			c = nil
		}
		return &CommentSubject{Comment: c}, nil
	},
}

// PasswordSubject validates if a presented secret matches the stored one.
// With KindProtectedPassword the presented secret is read from the protected
// path of the context instead of from the samples.
type PasswordSubject struct {
	kind   Kind
	secret *secret.Bytes
}

// NewPassword creates a password subject. A subject with an empty password
// never validates.
func NewPassword(password []byte) *PasswordSubject {
	return &PasswordSubject{kind: KindPassword, secret: secret.NewBytes(password)}
}

// NewProtectedPassword creates a protected password subject. A subject with
// an empty password never validates.
func NewProtectedPassword(password []byte) *PasswordSubject {
	return &PasswordSubject{kind: KindProtectedPassword, secret: secret.NewBytes(password)}
}

func (s *PasswordSubject) Kind() Kind { return s.kind }

func (s *PasswordSubject) Validate(ctx *Context) bool {
	if s.secret.Len() == 0 {
		return false
	}
	if s.kind == KindProtectedPassword {
		return s.validateProtected(ctx)
	}
	for _, sample := range ctx.SamplesOf(KindPassword) {
		v, ok := secret.Find(sample.Values, secret.TypeSecret)
		if !ok {
			continue
		}
		presented, err := secret.Get[[]byte](v, secret.TypeSecret)
		if err != nil {
			continue
		}
		if s.secret.Equal(presented) {
			return true
		}
	}
	return false
}

func (s *PasswordSubject) validateProtected(ctx *Context) bool {
	if len(ctx.SamplesOf(KindProtectedPassword)) == 0 || ctx.Path == nil {
		return false
	}
	presented, err := ctx.Path.ReadSecret(ctx.ctx(), "passphrase")
	if err != nil {
		log.FromCtx(ctx.ctx()).Debug("Protected path failed", "err", err)
		return false
	}
	defer presented.Destroy()
	return s.secret.EqualSecret(presented)
}

// List does not contain the password.
func (s *PasswordSubject) List() List {
	return List{Word(uint32(s.kind))}
}

func (s *PasswordSubject) Clone() Subject {
	return &PasswordSubject{kind: s.kind, secret: s.secret.Clone()}
}

func (s *PasswordSubject) Equal(other Subject) bool {
	o, ok := other.(*PasswordSubject)
	return ok && s.kind == o.kind && s.secret.EqualSecret(o.secret)
}

func (s *PasswordSubject) ExportBlob() ([]byte, []byte, error) {
	return exportBlob(s.kind, nil, func(b *cryptobyte.Builder) {
		addBytes16(b, s.secret.Export())
	})
}

// Destroy erases the stored password.
func (s *PasswordSubject) Destroy() {
	s.secret.Destroy()
}

// passwordMaker decodes password subjects. List never carries the secret, so
// a list without a datum yields a subject that never validates.
func passwordMaker(kind Kind) Maker {
	return Maker{
		FromList: func(_ *Registry, l List, _ int) (Subject, error) {
			r := newListReader(l, kind)
			var pw []byte
			if r.more() {
				pw = r.datum()
			}
			if err := r.done(); err != nil {
				return nil, err
			}
			return &PasswordSubject{kind: kind, secret: secret.NewBytes(pw)}, nil
		},
		FromBlob: func(_ *Registry, _, priv *cryptobyte.String, _ int) (Subject, error) {
			pw, ok := readBytes16(priv)
			if !ok {
				return nil, badBlob(kind)
			}
			s := &PasswordSubject{kind: kind, secret: secret.NewBytes(pw)}
			clear(pw)
			return s, nil
		},
	}
}
