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
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/secret"
)

// KeySubject validates if a sample carries a signature over the context
// challenge that verifies under the stored public key. Ed25519 signatures
// cover the raw challenge, ECDSA signatures its SHA-256 digest.
type KeySubject struct {
	der []byte
	pub crypto.PublicKey
}

// NewKey creates a key subject from a PKIX DER encoded public key.
func NewKey(der []byte) (*KeySubject, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, serrors.JoinNoStack(ErrBadFormat, err, "reason", "invalid public key")
	}
	switch pub.(type) {
	case ed25519.PublicKey, *ecdsa.PublicKey:
	default:
		return nil, serrors.JoinNoStack(ErrBadFormat, nil,
			"reason", "unsupported key type", "type", fmt.Sprintf("%T", pub))
	}
	return &KeySubject{der: bytes.Clone(der), pub: pub}, nil
}

// PublicKey returns the parsed public key.
func (s *KeySubject) PublicKey() crypto.PublicKey {
	return s.pub
}

func (s *KeySubject) Kind() Kind { return KindKey }

func (s *KeySubject) Validate(ctx *Context) bool {
	if ctx == nil || len(ctx.Challenge) == 0 {
		return false
	}
	for _, sample := range ctx.SamplesOf(KindKey) {
		v, ok := secret.Find(sample.Values, secret.TypeSignature)
		if !ok {
			continue
		}
		sig, err := secret.Get[[]byte](v, secret.TypeSignature)
		if err != nil {
			continue
		}
		if s.verify(ctx.Challenge, sig) {
			return true
		}
	}
	return false
}

func (s *KeySubject) verify(challenge, sig []byte) bool {
	switch pub := s.pub.(type) {
	case ed25519.PublicKey:
		return len(sig) == ed25519.SignatureSize && ed25519.Verify(pub, challenge, sig)
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(challenge)
		return ecdsa.VerifyASN1(pub, digest[:], sig)
	}
	return false
}

func (s *KeySubject) List() List {
	return List{Word(uint32(KindKey)), Datum(s.der)}
}

func (s *KeySubject) Clone() Subject {
	return &KeySubject{der: bytes.Clone(s.der), pub: s.pub}
}

func (s *KeySubject) Equal(other Subject) bool {
	o, ok := other.(*KeySubject)
	return ok && bytes.Equal(s.der, o.der)
}

func (s *KeySubject) ExportBlob() ([]byte, []byte, error) {
	return exportBlob(KindKey, func(b *cryptobyte.Builder) {
		addBytes16(b, s.der)
	}, nil)
}

var keyMaker = Maker{
	FromList: func(_ *Registry, l List, _ int) (Subject, error) {
		r := newListReader(l, KindKey)
		der := r.datum()
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewKey(der)
	},
	FromBlob: func(_ *Registry, pub, _ *cryptobyte.String, _ int) (Subject, error) {
		der, ok := readBytes16(pub)
		if !ok {
			return nil, badBlob(KindKey)
		}
		return NewKey(der)
	},
}
