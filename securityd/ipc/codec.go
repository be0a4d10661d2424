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

// Package ipc defines the securityd client/daemon protocol.
//
// Messages travel as walker frames inside gRPC. Each message converts itself
// to and from a walker graph; the Codec takes care of framing and byte
// order.
package ipc

import (
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/walker"
)

// CodecName is the gRPC content subtype of walker frames.
const CodecName = "walker"

// Message is a protocol message.
type Message interface {
	Node() (*walker.Node, error)
	FromNode(n *walker.Node) error
}

// Codec is a gRPC codec for Messages.
type Codec struct {
	// BigEndian selects the byte order of produced frames. Frames in either
	// order are accepted.
	BigEndian bool
}

func (c Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, serrors.New("not an ipc message", "type", typeName(v))
	}
	n, err := m.Node()
	if err != nil {
		return nil, err
	}
	return walker.Encode(n, 0, c.BigEndian)
}

func (c Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return serrors.New("not an ipc message", "type", typeName(v))
	}
	n, _, err := walker.Decode(data)
	if err != nil {
		return err
	}
	return m.FromNode(n)
}

func (Codec) Name() string {
	return CodecName
}
