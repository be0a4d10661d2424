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

package ipc

import (
	"fmt"
	"time"

	"github.com/securityd/securityd/pkg/acl"
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/pkg/secret"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/pkg/walker"
)

// ErrMalformed indicates a graph that does not have the shape of the
// expected message.
var ErrMalformed = serrors.New("malformed message")

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// reader checks the shape of a node while reading its fields.
type reader struct {
	n   *walker.Node
	i   int
	err error
}

func newReader(n *walker.Node, fields int) *reader {
	r := &reader{n: n}
	if n == nil || len(n.Fields) != fields {
		got := -1
		if n != nil {
			got = len(n.Fields)
		}
		r.err = serrors.JoinNoStack(ErrMalformed, nil, "fields", got, "expected", fields)
	}
	return r
}

func (r *reader) next(k walker.Kind) walker.Field {
	if r.err != nil {
		return walker.Field{}
	}
	f := r.n.Fields[r.i]
	if f.Kind != k {
		r.err = serrors.JoinNoStack(ErrMalformed, nil,
			"field", r.i, "kind", f.Kind, "expected", k)
		return walker.Field{}
	}
	r.i++
	return f
}

func (r *reader) u8() uint8    { return uint8(r.next(walker.KindU8).Uint) }
func (r *reader) u32() uint32  { return uint32(r.next(walker.KindU32).Uint) }
func (r *reader) u64() uint64  { return r.next(walker.KindU64).Uint }
func (r *reader) blob() []byte { return r.next(walker.KindBlob).Blob }
func (r *reader) ref() *walker.Node {
	return r.next(walker.KindRef).Ref
}
func (r *reader) list() []*walker.Node {
	return r.next(walker.KindList).List
}

func boolField(b bool) walker.Field {
	if b {
		return walker.U8(1)
	}
	return walker.U8(0)
}

// EntryBlob is an ACL entry in transport form. The subject travels as its
// exported blob.
type EntryBlob struct {
	Tag        string
	Operations acl.Operation
	Version    uint32
	Public     []byte
	Private    []byte
}

// NewEntryBlob exports the entry.
func NewEntryBlob(e acl.Entry) (EntryBlob, error) {
	pub, priv, err := e.Subject.ExportBlob()
	if err != nil {
		return EntryBlob{}, serrors.Wrap("exporting subject", err, "tag", e.Tag)
	}
	return EntryBlob{
		Tag:        e.Tag,
		Operations: e.Operations,
		Version:    acl.BlobVersion,
		Public:     pub,
		Private:    priv,
	}, nil
}

// Entry imports the subject with the registry.
func (b EntryBlob) Entry(reg *acl.Registry) (acl.Entry, error) {
	sub, err := reg.ImportBlob(b.Version, b.Public, b.Private)
	if err != nil {
		return acl.Entry{}, serrors.Wrap("importing subject", err, "tag", b.Tag)
	}
	return acl.Entry{Tag: b.Tag, Subject: sub, Operations: b.Operations}, nil
}

func (b EntryBlob) node() *walker.Node {
	subject := walker.NewNode(walker.U32(b.Version), walker.Blob(b.Public), walker.Blob(b.Private))
	return walker.NewNode(
		walker.Blob([]byte(b.Tag)),
		walker.U32(uint32(b.Operations)),
		walker.Ref(subject),
	)
}

func (b *EntryBlob) fromNode(n *walker.Node) error {
	r := newReader(n, 3)
	b.Tag = string(r.blob())
	b.Operations = acl.Operation(r.u32())
	subject := r.ref()
	if r.err != nil {
		return r.err
	}
	s := newReader(subject, 3)
	b.Version = s.u32()
	b.Public = s.blob()
	b.Private = s.blob()
	return s.err
}

// SetACLRequest installs or replaces the ACL with the given name.
type SetACLRequest struct {
	Name    string
	Entries []EntryBlob
}

func (m *SetACLRequest) Node() (*walker.Node, error) {
	entries := make([]*walker.Node, 0, len(m.Entries))
	for _, e := range m.Entries {
		entries = append(entries, e.node())
	}
	return walker.NewNode(walker.Blob([]byte(m.Name)), walker.List(entries...)), nil
}

func (m *SetACLRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 2)
	m.Name = string(r.blob())
	entries := r.list()
	if r.err != nil {
		return r.err
	}
	m.Entries = make([]EntryBlob, len(entries))
	for i, e := range entries {
		if err := m.Entries[i].fromNode(e); err != nil {
			return serrors.Wrap("decoding entry", err, "index", i)
		}
	}
	return nil
}

type SetACLResponse struct {
	// Replaced is set if an ACL with the same name existed.
	Replaced bool
}

func (m *SetACLResponse) Node() (*walker.Node, error) {
	return walker.NewNode(boolField(m.Replaced)), nil
}

func (m *SetACLResponse) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	m.Replaced = r.u8() != 0
	return r.err
}

// EvaluateRequest asks whether the presented samples allow the operation on
// the named ACL. The caller environment is taken from the transport, never
// from the request.
type EvaluateRequest struct {
	Name      string
	Operation acl.Operation
	Challenge []byte
	Samples   []acl.Sample
}

func (m *EvaluateRequest) Node() (*walker.Node, error) {
	samples := make([]*walker.Node, 0, len(m.Samples))
	for i, s := range m.Samples {
		values := make([]*walker.Node, 0, len(s.Values))
		for _, v := range s.Values {
			vn, err := valueNode(v)
			if err != nil {
				return nil, serrors.Wrap("encoding sample", err, "index", i)
			}
			values = append(values, vn)
		}
		samples = append(samples, walker.NewNode(walker.U32(uint32(s.Kind)), walker.List(values...)))
	}
	return walker.NewNode(
		walker.Blob([]byte(m.Name)),
		walker.U32(uint32(m.Operation)),
		walker.Blob(m.Challenge),
		walker.List(samples...),
	), nil
}

func (m *EvaluateRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 4)
	m.Name = string(r.blob())
	m.Operation = acl.Operation(r.u32())
	m.Challenge = r.blob()
	samples := r.list()
	if r.err != nil {
		return r.err
	}
	m.Samples = make([]acl.Sample, 0, len(samples))
	for i, sn := range samples {
		sr := newReader(sn, 2)
		s := acl.Sample{Kind: acl.Kind(sr.u32())}
		values := sr.list()
		if sr.err != nil {
			return serrors.Wrap("decoding sample", sr.err, "index", i)
		}
		for _, vn := range values {
			v, err := valueFromNode(vn)
			if err != nil {
				return serrors.Wrap("decoding sample", err, "index", i)
			}
			s.Values = append(s.Values, v)
		}
		m.Samples = append(m.Samples, s)
	}
	return nil
}

func valueNode(v secret.Value) (*walker.Node, error) {
	typ := walker.U32(uint32(v.Type()))
	switch tv := v.(type) {
	case *secret.Bytes:
		return walker.NewNode(typ, walker.Blob(tv.Export())), nil
	case *secret.Typed[[]byte]:
		return walker.NewNode(typ, walker.Blob(tv.Value())), nil
	case *secret.Typed[string]:
		return walker.NewNode(typ, walker.Blob([]byte(tv.Value()))), nil
	case *secret.Typed[uint32]:
		return walker.NewNode(typ, walker.U32(tv.Value())), nil
	default:
		return nil, serrors.New("unsupported sample value", "type", typeName(v))
	}
}

func valueFromNode(n *walker.Node) (secret.Value, error) {
	if n == nil || len(n.Fields) != 2 || n.Fields[0].Kind != walker.KindU32 {
		return nil, serrors.JoinNoStack(ErrMalformed, nil, "reason", "bad sample value")
	}
	typ := secret.Type(n.Fields[0].Uint)
	r := newReader(n, 2)
	r.u32()
	var v secret.Value
	switch typ {
	case secret.TypeSecret:
		v = secret.NewBytes(r.blob())
	case secret.TypeBytes, secret.TypeSignature:
		v = secret.NewValue(typ, r.blob())
	case secret.TypeString:
		v = secret.NewValue(typ, string(r.blob()))
	case secret.TypeUint32:
		v = secret.NewValue(typ, r.u32())
	default:
		return nil, serrors.JoinNoStack(ErrMalformed, nil, "value_type", typ)
	}
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}

type EvaluateResponse struct {
	Decision acl.Decision
}

func (m *EvaluateResponse) Node() (*walker.Node, error) {
	return walker.NewNode(walker.U8(uint8(m.Decision))), nil
}

func (m *EvaluateResponse) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	m.Decision = acl.Decision(r.u8())
	return r.err
}

type FindTrustRequest struct {
	Fingerprint []byte
	PolicyOID   []byte
}

func (m *FindTrustRequest) Node() (*walker.Node, error) {
	return walker.NewNode(walker.Blob(m.Fingerprint), walker.Blob(m.PolicyOID)), nil
}

func (m *FindTrustRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 2)
	m.Fingerprint = r.blob()
	m.PolicyOID = r.blob()
	return r.err
}

type FindTrustResponse struct {
	Decision trust.Decision
}

func (m *FindTrustResponse) Node() (*walker.Node, error) {
	return walker.NewNode(walker.U32(uint32(m.Decision))), nil
}

func (m *FindTrustResponse) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	m.Decision = trust.Decision(r.u32())
	return r.err
}

type AssignTrustRequest struct {
	Fingerprint []byte
	PolicyOID   []byte
	Decision    trust.Decision
}

func (m *AssignTrustRequest) Node() (*walker.Node, error) {
	return walker.NewNode(
		walker.Blob(m.Fingerprint),
		walker.Blob(m.PolicyOID),
		walker.U32(uint32(m.Decision)),
	), nil
}

func (m *AssignTrustRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 3)
	m.Fingerprint = r.blob()
	m.PolicyOID = r.blob()
	m.Decision = trust.Decision(r.u32())
	return r.err
}

type AssignTrustResponse struct{}

func (m *AssignTrustResponse) Node() (*walker.Node, error) {
	return walker.NewNode(), nil
}

func (m *AssignTrustResponse) FromNode(n *walker.Node) error {
	return newReader(n, 0).err
}

type CopyRootsRequest struct {
	// Refresh reloads the anchors before returning them.
	Refresh bool
}

func (m *CopyRootsRequest) Node() (*walker.Node, error) {
	return walker.NewNode(boolField(m.Refresh)), nil
}

func (m *CopyRootsRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	m.Refresh = r.u8() != 0
	return r.err
}

type CopyRootsResponse struct {
	// Roots are DER encoded certificates.
	Roots [][]byte
}

func (m *CopyRootsResponse) Node() (*walker.Node, error) {
	roots := make([]*walker.Node, 0, len(m.Roots))
	for _, der := range m.Roots {
		roots = append(roots, walker.NewNode(walker.Blob(der)))
	}
	return walker.NewNode(walker.List(roots...)), nil
}

func (m *CopyRootsResponse) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	roots := r.list()
	if r.err != nil {
		return r.err
	}
	m.Roots = make([][]byte, 0, len(roots))
	for _, rn := range roots {
		rr := newReader(rn, 1)
		der := rr.blob()
		if rr.err != nil {
			return rr.err
		}
		m.Roots = append(m.Roots, der)
	}
	return nil
}

// CheckChainRequest asks for the revocation status of a chain. Chain holds
// DER certificates, leaf first, each issued by its successor. The last
// certificate is the anchor and is not checked.
type CheckChainRequest struct {
	Chain [][]byte
}

func (m *CheckChainRequest) Node() (*walker.Node, error) {
	certs := make([]*walker.Node, 0, len(m.Chain))
	for _, der := range m.Chain {
		certs = append(certs, walker.NewNode(walker.Blob(der)))
	}
	return walker.NewNode(walker.List(certs...)), nil
}

func (m *CheckChainRequest) FromNode(n *walker.Node) error {
	r := newReader(n, 1)
	certs := r.list()
	if r.err != nil {
		return r.err
	}
	m.Chain = make([][]byte, 0, len(certs))
	for _, c := range certs {
		cr := newReader(c, 1)
		der := cr.blob()
		if cr.err != nil {
			return cr.err
		}
		m.Chain = append(m.Chain, der)
	}
	return nil
}

type CheckChainResponse struct {
	// States has one entry per checked position.
	States   []revocation.State
	Revoked  bool
	Accepted bool
	// NextUpdate is zero if no source announced one.
	NextUpdate time.Time
}

func (m *CheckChainResponse) Node() (*walker.Node, error) {
	states := make([]*walker.Node, 0, len(m.States))
	for _, s := range m.States {
		states = append(states, walker.NewNode(walker.U8(uint8(s))))
	}
	var next uint64
	if !m.NextUpdate.IsZero() {
		next = uint64(m.NextUpdate.Unix())
	}
	return walker.NewNode(
		walker.List(states...),
		boolField(m.Revoked),
		boolField(m.Accepted),
		walker.U64(next),
	), nil
}

func (m *CheckChainResponse) FromNode(n *walker.Node) error {
	r := newReader(n, 4)
	states := r.list()
	m.Revoked = r.u8() != 0
	m.Accepted = r.u8() != 0
	next := r.u64()
	if r.err != nil {
		return r.err
	}
	m.States = make([]revocation.State, 0, len(states))
	for _, s := range states {
		sr := newReader(s, 1)
		state := revocation.State(sr.u8())
		if sr.err != nil {
			return sr.err
		}
		m.States = append(m.States, state)
	}
	m.NextUpdate = time.Time{}
	if next != 0 {
		m.NextUpdate = time.Unix(int64(next), 0).UTC()
	}
	return nil
}
