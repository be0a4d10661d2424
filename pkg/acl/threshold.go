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
	"golang.org/x/crypto/cryptobyte"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// ThresholdSubject validates if at least K of its nested subjects validate.
// The nested subjects keep their order; it is significant for equality and
// for the encodings.
type ThresholdSubject struct {
	K        uint32
	Subjects []Subject
}

// NewThreshold creates a k-of-n threshold subject.
func NewThreshold(k uint32, subjects ...Subject) (*ThresholdSubject, error) {
	if k == 0 || int(k) > len(subjects) {
		return nil, serrors.JoinNoStack(ErrBadFormat, nil,
			"reason", "invalid threshold", "k", k, "n", len(subjects))
	}
	for _, s := range subjects {
		if s == nil {
			return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "nil nested subject")
		}
	}
	return &ThresholdSubject{K: k, Subjects: subjects}, nil
}

func (s *ThresholdSubject) Kind() Kind { return KindThreshold }

func (s *ThresholdSubject) Validate(ctx *Context) bool {
	if s.K == 0 {
		return false
	}
	var count uint32
	for i, sub := range s.Subjects {
		if uint32(len(s.Subjects)-i)+count < s.K {
			return false
		}
		if sub.Validate(ctx) {
			count++
			if count >= s.K {
				return true
			}
		}
	}
	return false
}

func (s *ThresholdSubject) List() List {
	l := List{
		Word(uint32(KindThreshold)),
		Word(s.K),
		Word(uint32(len(s.Subjects))),
	}
	for _, sub := range s.Subjects {
		l = append(l, Sublist(sub.List()))
	}
	return l
}

func (s *ThresholdSubject) Clone() Subject {
	c := &ThresholdSubject{K: s.K, Subjects: make([]Subject, 0, len(s.Subjects))}
	for _, sub := range s.Subjects {
		c.Subjects = append(c.Subjects, sub.Clone())
	}
	return c
}

func (s *ThresholdSubject) Equal(other Subject) bool {
	o, ok := other.(*ThresholdSubject)
	if !ok || s.K != o.K || len(s.Subjects) != len(o.Subjects) {
		return false
	}
	for i := range s.Subjects {
		if !s.Subjects[i].Equal(o.Subjects[i]) {
			return false
		}
	}
	return true
}

func (s *ThresholdSubject) ExportBlob() ([]byte, []byte, error) {
	pubs := make([][]byte, 0, len(s.Subjects))
	privs := make([][]byte, 0, len(s.Subjects))
	for i, sub := range s.Subjects {
		pub, priv, err := sub.ExportBlob()
		if err != nil {
			return nil, nil, serrors.Wrap("exporting nested subject", err, "index", i)
		}
		pubs = append(pubs, pub)
		privs = append(privs, priv)
	}
	return exportBlob(KindThreshold,
		func(b *cryptobyte.Builder) {
			b.AddUint32(s.K)
			b.AddUint32(uint32(len(s.Subjects)))
			for _, pub := range pubs {
				b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(pub) })
			}
		},
		func(b *cryptobyte.Builder) {
			for _, priv := range privs {
				b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(priv) })
			}
		},
	)
}

var thresholdMaker = Maker{
	FromList: func(reg *Registry, l List, depth int) (Subject, error) {
		r := newListReader(l, KindThreshold)
		k, n := r.word(), r.word()
		if r.err != nil {
			return nil, r.err
		}
		if n > uint32(len(l)) {
			return nil, serrors.JoinNoStack(ErrBadFormat, nil, "reason", "count exceeds list")
		}
		subjects := make([]Subject, 0, n)
		for i := uint32(0); i < n; i++ {
			nested := r.sublist()
			if r.err != nil {
				return nil, r.err
			}
			sub, err := reg.fromList(nested, depth+1)
			if err != nil {
				return nil, serrors.Wrap("parsing nested subject", err, "index", i)
			}
			subjects = append(subjects, sub)
		}
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewThreshold(k, subjects...)
	},
	FromBlob: func(reg *Registry, pub, priv *cryptobyte.String, depth int) (Subject, error) {
		var k, n uint32
		if !pub.ReadUint32(&k) || !pub.ReadUint32(&n) {
			return nil, badBlob(KindThreshold)
		}
		if uint64(n)*3 > uint64(len(*pub)) {
			return nil, badBlob(KindThreshold)
		}
		subjects := make([]Subject, 0, n)
		for i := uint32(0); i < n; i++ {
			var nestedPub, nestedPriv cryptobyte.String
			if !pub.ReadUint24LengthPrefixed(&nestedPub) ||
				!priv.ReadUint24LengthPrefixed(&nestedPriv) {
				return nil, badBlob(KindThreshold)
			}
			sub, err := reg.importBlob(&nestedPub, &nestedPriv, depth+1)
			if err != nil {
				return nil, serrors.Wrap("importing nested subject", err, "index", i)
			}
			if !nestedPub.Empty() || !nestedPriv.Empty() {
				return nil, badBlob(KindThreshold)
			}
			subjects = append(subjects, sub)
		}
		return NewThreshold(k, subjects...)
	},
}
