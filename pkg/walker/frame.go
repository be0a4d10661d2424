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

package walker

import (
	"bytes"

	"github.com/gopacket/gopacket"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// Magic starts every frame.
var Magic = [4]byte{'S', 'D', 'W', 'K'}

// Order values of the frame header.
const (
	OrderLittle byte = 0
	OrderBig    byte = 1
)

// HeaderLen is the length of the frame header.
const HeaderLen = 4 + 1 + 8 + 4

// Header precedes the arena in a frame. Base and Size are written in the
// byte order announced by Order.
type Header struct {
	Order byte
	Base  uint64
	Size  uint32
}

// Flip reports whether the arena uses big endian scalars.
func (h Header) Flip() bool {
	return h.Order == OrderBig
}

// Encode relocates root into a frame. The arena is exactly as large as the
// graph requires.
func Encode(root *Node, base uint64, flip bool) ([]byte, error) {
	size, err := Size(root)
	if err != nil {
		return nil, err
	}
	buf := gopacket.NewSerializeBuffer()
	if err := relocateInto(buf, root, base, size, flip); err != nil {
		return nil, err
	}
	h := Header{Order: OrderLittle, Base: base, Size: size}
	if flip {
		h.Order = OrderBig
	}
	hdr, err := buf.PrependBytes(HeaderLen)
	if err != nil {
		return nil, serrors.Wrap("writing header", err)
	}
	h.write(hdr)
	return buf.Bytes(), nil
}

func (h Header) write(b []byte) {
	order := byteOrder(h.Flip())
	copy(b, Magic[:])
	b[4] = h.Order
	order.PutUint64(b[5:], h.Base)
	order.PutUint32(b[13:], h.Size)
}

// DecodeHeader parses the frame header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, serrors.JoinNoStack(ErrBadHeader, ErrTruncated, "len", len(buf))
	}
	if !bytes.Equal(buf[:4], Magic[:]) {
		return Header{}, serrors.JoinNoStack(ErrBadHeader, nil, "magic", buf[:4])
	}
	h := Header{Order: buf[4]}
	if h.Order != OrderLittle && h.Order != OrderBig {
		return Header{}, serrors.JoinNoStack(ErrBadHeader, nil, "order", h.Order)
	}
	order := byteOrder(h.Flip())
	h.Base = order.Uint64(buf[5:])
	h.Size = order.Uint32(buf[13:])
	return h, nil
}

// Decode reads a frame produced by Encode and reconstitutes the graph with
// the byte order the header announces.
func Decode(buf []byte) (*Node, Header, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, Header{}, err
	}
	arena := buf[HeaderLen:]
	if uint64(len(arena)) != uint64(h.Size) {
		if uint64(len(arena)) < uint64(h.Size) {
			return nil, h, serrors.JoinNoStack(ErrTruncated, nil,
				"len", len(arena), "size", h.Size)
		}
		return nil, h, serrors.JoinNoStack(ErrBadHeader, nil,
			"trailing", uint64(len(arena))-uint64(h.Size))
	}
	root, err := Reconstitute(arena, h.Base, h.Size, h.Flip())
	if err != nil {
		return nil, h, err
	}
	return root, h, nil
}
