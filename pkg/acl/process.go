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
)

// ProcessSubject validates if the calling process runs with the stored user
// and/or group ID. A subject with neither set never validates.
type ProcessSubject struct {
	UID *uint32
	GID *uint32
}

const (
	processHasUID uint32 = 1 << iota
	processHasGID
)

func (s *ProcessSubject) Kind() Kind { return KindProcess }

func (s *ProcessSubject) Validate(ctx *Context) bool {
	if ctx == nil || ctx.Env == nil || (s.UID == nil && s.GID == nil) {
		return false
	}
	if s.UID != nil && *s.UID != ctx.Env.UID {
		return false
	}
	if s.GID != nil && *s.GID != ctx.Env.GID {
		return false
	}
	return true
}

func (s *ProcessSubject) flags() uint32 {
	var f uint32
	if s.UID != nil {
		f |= processHasUID
	}
	if s.GID != nil {
		f |= processHasGID
	}
	return f
}

func (s *ProcessSubject) List() List {
	return List{
		Word(uint32(KindProcess)),
		Word(s.flags()),
		Word(deref(s.UID)),
		Word(deref(s.GID)),
	}
}

func (s *ProcessSubject) Clone() Subject {
	return &ProcessSubject{UID: copyPtr(s.UID), GID: copyPtr(s.GID)}
}

func (s *ProcessSubject) Equal(other Subject) bool {
	o, ok := other.(*ProcessSubject)
	return ok && s.flags() == o.flags() &&
		deref(s.UID) == deref(o.UID) && deref(s.GID) == deref(o.GID)
}

func (s *ProcessSubject) ExportBlob() ([]byte, []byte, error) {
	return exportBlob(KindProcess, func(b *cryptobyte.Builder) {
		b.AddUint32(s.flags())
		b.AddUint32(deref(s.UID))
		b.AddUint32(deref(s.GID))
	}, nil)
}

func newProcess(flags, uid, gid uint32) *ProcessSubject {
	s := &ProcessSubject{}
	if flags&processHasUID != 0 {
		s.UID = &uid
	}
	if flags&processHasGID != 0 {
		s.GID = &gid
	}
	return s
}

var processMaker = Maker{
	FromList: func(_ *Registry, l List, _ int) (Subject, error) {
		r := newListReader(l, KindProcess)
		flags, uid, gid := r.word(), r.word(), r.word()
		if err := r.done(); err != nil {
			return nil, err
		}
		return newProcess(flags, uid, gid), nil
	},
	FromBlob: func(_ *Registry, pub, _ *cryptobyte.String, _ int) (Subject, error) {
		var flags, uid, gid uint32
		if !pub.ReadUint32(&flags) || !pub.ReadUint32(&uid) || !pub.ReadUint32(&gid) {
			return nil, badBlob(KindProcess)
		}
		return newProcess(flags, uid, gid), nil
	},
}

func deref(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}

func copyPtr(v *uint32) *uint32 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
