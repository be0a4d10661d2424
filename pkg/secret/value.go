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

// Package secret contains typed value boxes used to pass parameters and
// credential material through the ACL machinery without losing their type
// identity.
//
// A Value carries a Type tag next to its payload. Consumers recover the
// payload with Get, which checks both the tag and the Go type, so a datum
// that was presented as a signature can never be read back as a password.
// Values holding sensitive material are erased with Destroy once they are no
// longer needed.
package secret

import (
	"crypto/subtle"
	"fmt"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// ErrTypeMismatch indicates that a value does not have the requested type.
var ErrTypeMismatch = serrors.New("value type mismatch")

// Type identifies the semantic type of a value.
type Type uint32

const (
	TypeUnknown Type = iota
	// TypeSecret is sensitive byte material such as a passphrase.
	TypeSecret
	// TypeBytes is non-sensitive opaque data.
	TypeBytes
	// TypeString is a UTF-8 string.
	TypeString
	// TypeUint32 is an unsigned 32 bit integer.
	TypeUint32
	// TypeSignature is a signature over a challenge.
	TypeSignature
)

func (t Type) String() string {
	switch t {
	case TypeSecret:
		return "secret"
	case TypeBytes:
		return "bytes"
	case TypeString:
		return "string"
	case TypeUint32:
		return "uint32"
	case TypeSignature:
		return "signature"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// Value is a typed value box.
type Value interface {
	// Type returns the type tag of the value.
	Type() Type
	// Destroy erases the payload. Using the value afterwards yields the zero
	// payload.
	Destroy()
}

// Typed is a Value holding a payload of Go type T.
type Typed[T any] struct {
	typ Type
	val T
}

// NewValue creates a typed value.
func NewValue[T any](typ Type, val T) *Typed[T] {
	return &Typed[T]{typ: typ, val: val}
}

// Type implements Value.
func (v *Typed[T]) Type() Type {
	return v.typ
}

// Value returns the payload.
func (v *Typed[T]) Value() T {
	return v.val
}

// Destroy implements Value.
func (v *Typed[T]) Destroy() {
	if b, ok := any(v.val).([]byte); ok {
		clear(b)
	}
	var zero T
	v.val = zero
}

// Get returns the payload of v if v is a Typed[T] tagged with typ.
func Get[T any](v Value, typ Type) (T, error) {
	var zero T
	if v == nil {
		return zero, serrors.JoinNoStack(ErrTypeMismatch, nil, "expected", typ, "actual", "nil")
	}
	if v.Type() != typ {
		return zero, serrors.JoinNoStack(ErrTypeMismatch, nil, "expected", typ, "actual", v.Type())
	}
	tv, ok := v.(*Typed[T])
	if !ok {
		if s, ok := v.(*Bytes); ok {
			if r, ok := any(s.expose()).(T); ok {
				return r, nil
			}
		}
		return zero, serrors.JoinNoStack(ErrTypeMismatch, nil,
			"expected", fmt.Sprintf("%T", zero), "actual", fmt.Sprintf("%T", v))
	}
	return tv.val, nil
}

// Find returns the first value in vals with the given type tag.
func Find(vals []Value, typ Type) (Value, bool) {
	for _, v := range vals {
		if v != nil && v.Type() == typ {
			return v, true
		}
	}
	return nil, false
}

// Bytes is sensitive byte material. It never prints its content and
// compares in constant time.
type Bytes struct {
	b []byte
}

var _ Value = (*Bytes)(nil)

// NewBytes copies b into a new secret.
func NewBytes(b []byte) *Bytes {
	return &Bytes{b: append([]byte(nil), b...)}
}

// Type implements Value.
func (s *Bytes) Type() Type {
	return TypeSecret
}

// Len returns the length of the secret.
func (s *Bytes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Equal compares the secret with other in constant time.
func (s *Bytes) Equal(other []byte) bool {
	if s == nil {
		return false
	}
	return subtle.ConstantTimeCompare(s.b, other) == 1
}

// EqualSecret compares two secrets in constant time.
func (s *Bytes) EqualSecret(other *Bytes) bool {
	if s == nil || other == nil {
		return s == other
	}
	return subtle.ConstantTimeCompare(s.b, other.b) == 1
}

// Clone returns an independent copy.
func (s *Bytes) Clone() *Bytes {
	if s == nil {
		return nil
	}
	return NewBytes(s.b)
}

// Export returns a copy of the secret material. It is meant for
// serialization into private blobs only.
func (s *Bytes) Export() []byte {
	if s == nil {
		return nil
	}
	return append([]byte(nil), s.b...)
}

func (s *Bytes) expose() []byte {
	return s.b
}

// Destroy implements Value. It overwrites the material with zeros.
func (s *Bytes) Destroy() {
	if s == nil {
		return
	}
	clear(s.b)
	s.b = nil
}

// String never reveals the secret.
func (s *Bytes) String() string {
	return fmt.Sprintf("secret[%d]", s.Len())
}

// GoString never reveals the secret.
func (s *Bytes) GoString() string {
	return s.String()
}
