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

// Package acl implements access control lists built from pluggable subjects.
//
// A Subject decides whether a set of presented credentials satisfies it. An
// ObjectACL is an ordered list of entries, each pairing a subject with the
// operations it authorizes. Evaluation walks the entries in insertion order
// and grants on the first entry that covers the requested operations and
// whose subject validates.
//
// Subjects have two external representations. The canonical List is a
// re-parseable structural description used for introspection. The blob pair
// (public, private) is the persistent form and round-trips exactly through
// ImportBlob.
package acl

import (
	"fmt"
	"strings"

	"github.com/securityd/securityd/pkg/private/serrors"
)

var (
	// ErrBadFormat indicates a malformed canonical list or blob.
	ErrBadFormat = serrors.New("malformed subject encoding")
	// ErrDuplicateTag indicates that an entry with the same tag exists.
	ErrDuplicateTag = serrors.New("duplicate entry tag")
	// ErrNotFound indicates that no entry with the given tag exists.
	ErrNotFound = serrors.New("entry not found")
	// ErrUnsupportedVersion indicates a blob with an unknown version.
	ErrUnsupportedVersion = serrors.New("unsupported blob version")
	// ErrUnknownKind indicates that no maker is registered for a kind.
	ErrUnknownKind = serrors.New("unknown subject kind")
)

// Kind identifies a subject variant.
type Kind uint32

const (
	KindAny               Kind = 1
	KindComment           Kind = 2
	KindPassword          Kind = 3
	KindProtectedPassword Kind = 4
	KindThreshold         Kind = 5
	KindKey               Kind = 6
	KindProcess           Kind = 7
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindComment:
		return "comment"
	case KindPassword:
		return "password"
	case KindProtectedPassword:
		return "protected_password"
	case KindThreshold:
		return "threshold"
	case KindKey:
		return "key"
	case KindProcess:
		return "process"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Operation is a set of operations encoded as a bitmask.
type Operation uint32

const (
	OpLogin Operation = 1 << iota
	OpDecrypt
	OpEncrypt
	OpSign
	OpMAC
	OpDerive
	OpExportWrapped
	OpExportClear
	OpImport
	OpDelete
	OpChangeACL
	OpChangeOwner
	OpTrustSettings

	// OpAny is the set of all operations.
	OpAny Operation = 1<<iota - 1
)

var opNames = []string{
	"login", "decrypt", "encrypt", "sign", "mac", "derive", "export_wrapped",
	"export_clear", "import", "delete", "change_acl", "change_owner", "trust_settings",
}

// Covers reports whether o includes every operation in requested.
func (o Operation) Covers(requested Operation) bool {
	return requested&^o == 0
}

func (o Operation) String() string {
	if o == OpAny {
		return "any"
	}
	var names []string
	for i, name := range opNames {
		if o&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if rest := o &^ OpAny; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseOperation parses a "|" separated list of operation names.
func ParseOperation(s string) (Operation, error) {
	var op Operation
	for _, name := range strings.Split(s, "|") {
		name = strings.TrimSpace(name)
		if name == "any" {
			op |= OpAny
			continue
		}
		found := false
		for i, n := range opNames {
			if n == name {
				op |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, serrors.New("unknown operation", "name", name)
		}
	}
	return op, nil
}

// Decision is the outcome of an ACL evaluation.
type Decision uint8

const (
	Denied Decision = iota
	Granted
)

func (d Decision) String() string {
	if d == Granted {
		return "granted"
	}
	return "denied"
}
