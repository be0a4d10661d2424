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

// Package walker flattens pointer shaped data into a base relative buffer
// and rebuilds it on the other side of a process boundary.
//
// A graph is a tree or DAG of Nodes. Each node is an ordered list of fields:
// fixed width scalars, opaque blobs, references to other nodes and lists of
// nodes. Relocate lays the graph out in a single arena in a fixed traversal
// order (fields in order, list elements by index, blobs right after the node
// that owns them) and replaces every reference by a u32 offset relative to
// the start of the arena. If the producer and the consumer disagree on byte
// order, every multi-byte scalar is reversed. Blob bytes never are.
//
// Offsets never depend on base: the value written for a reference is its
// distance from the start of the arena, not a pointer minus base. base only
// names where the arena lives for the producer; Relocate and Reconstitute
// reject a base whose region would overflow 64 bits, and the frame header
// carries it for diagnostics.
//
// Reconstitute is the inverse. The buffer crosses a trust boundary, so every
// offset is validated against the arena size and decoding aborts on the
// first fault.
//
// Arena layout of a node:
//
//	u32 field count
//	per field: u8 kind, payload
//	  U8, U16, U32, U64: the value
//	  Blob: u32 offset, u32 length
//	  Ref:  u32 offset, 0xffffffff for nil
//	  List: u32 count, count * u32 offset
package walker

import (
	"github.com/securityd/securityd/pkg/private/serrors"
)

var (
	// ErrOutOfBounds indicates an offset or length outside of the arena.
	ErrOutOfBounds = serrors.New("offset out of bounds")
	// ErrTruncated indicates that a buffer is shorter than required.
	ErrTruncated = serrors.New("buffer truncated")
	// ErrBadHeader indicates a malformed frame header.
	ErrBadHeader = serrors.New("bad frame header")
	// ErrCycle indicates a reference cycle.
	ErrCycle = serrors.New("reference cycle")
	// ErrTooDeep indicates a graph nested deeper than MaxDepth.
	ErrTooDeep = serrors.New("graph too deep")
	// ErrInvalidGraph indicates a field that cannot be encoded or decoded.
	ErrInvalidGraph = serrors.New("invalid graph")
)

// MaxDepth is the maximum nesting of references and lists.
const MaxDepth = 64

const nilRef = ^uint32(0)

// Kind is the type of a field.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindU16
	KindU32
	KindU64
	KindBlob
	KindRef
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindBlob:
		return "blob"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// width returns the width of a scalar kind, 0 for other kinds.
func (k Kind) width() int {
	switch k {
	case KindU8:
		return 1
	case KindU16:
		return 2
	case KindU32:
		return 4
	case KindU64:
		return 8
	default:
		return 0
	}
}

// Field is one field of a node. Only the member matching Kind is used.
type Field struct {
	Kind Kind
	Uint uint64
	Blob []byte
	Ref  *Node
	List []*Node
}

// Node is a record of fields.
type Node struct {
	Fields []Field
}

// NewNode creates a node with the given fields.
func NewNode(fields ...Field) *Node {
	return &Node{Fields: fields}
}

func U8(v uint8) Field   { return Field{Kind: KindU8, Uint: uint64(v)} }
func U16(v uint16) Field { return Field{Kind: KindU16, Uint: uint64(v)} }
func U32(v uint32) Field { return Field{Kind: KindU32, Uint: uint64(v)} }
func U64(v uint64) Field { return Field{Kind: KindU64, Uint: v} }

// Blob creates a blob field. The bytes are not copied.
func Blob(b []byte) Field { return Field{Kind: KindBlob, Blob: b} }

// Ref creates a reference field. n may be nil.
func Ref(n *Node) Field { return Field{Kind: KindRef, Ref: n} }

// List creates a list field.
func List(nodes ...*Node) Field { return Field{Kind: KindList, List: nodes} }

// fieldSize returns the encoded size of f, excluding referenced data.
func fieldSize(f Field) (uint64, error) {
	if w := f.Kind.width(); w != 0 {
		if w < 8 && f.Uint>>(8*w) != 0 {
			return 0, serrors.JoinNoStack(ErrInvalidGraph, nil,
				"kind", f.Kind, "value", f.Uint)
		}
		return 1 + uint64(w), nil
	}
	switch f.Kind {
	case KindBlob:
		return 1 + 8, nil
	case KindRef:
		return 1 + 4, nil
	case KindList:
		return 1 + 4 + 4*uint64(len(f.List)), nil
	default:
		return 0, serrors.JoinNoStack(ErrInvalidGraph, nil, "kind", f.Kind)
	}
}

func nodeSize(n *Node) (uint64, error) {
	size := uint64(4)
	for _, f := range n.Fields {
		s, err := fieldSize(f)
		if err != nil {
			return 0, err
		}
		size += s
	}
	return size, nil
}
