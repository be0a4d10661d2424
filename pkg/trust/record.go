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

// Package trust implements the per-user trust settings store.
//
// The store keeps one explicit decision per (certificate, policy) pair and a
// lazily loaded set of root anchors. The absence of a record is not an
// error: Find reports Unspecified and callers fall back to the default
// policy. Backend failures are always reported as errors, never as
// Unspecified.
package trust

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"

	"github.com/securityd/securityd/pkg/private/serrors"
)

var (
	// ErrIO indicates a storage failure.
	ErrIO = serrors.New("trust storage failure")
	// ErrVersionMismatch indicates a record with an unsupported version.
	ErrVersionMismatch = serrors.New("trust record version mismatch")
	// ErrNotFound is returned by backends for a missing record. The store
	// translates it to Unspecified.
	ErrNotFound = serrors.New("trust record not found")
	// ErrInvalidRecord indicates a record that cannot be stored.
	ErrInvalidRecord = serrors.New("invalid trust record")
)

// CurrentVersion is the record version written by this package.
const CurrentVersion uint32 = 1

// PayloadLen is the length of an encoded record payload.
const PayloadLen = 8

// Decision is an explicit trust decision.
type Decision uint32

const (
	Unspecified Decision = iota
	Proceed
	Deny
	ConfirmedByUser
	AskUser
	Invalid
)

var decisionNames = map[Decision]string{
	Unspecified:     "unspecified",
	Proceed:         "proceed",
	Deny:            "deny",
	ConfirmedByUser: "confirmed_by_user",
	AskUser:         "ask_user",
	Invalid:         "invalid",
}

func (d Decision) String() string {
	if n, ok := decisionNames[d]; ok {
		return n
	}
	return fmt.Sprintf("decision(%d)", uint32(d))
}

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d <= Invalid
}

// ParseDecision parses the string form of a decision.
func ParseDecision(s string) (Decision, error) {
	for d, n := range decisionNames {
		if strings.EqualFold(n, s) {
			return d, nil
		}
	}
	return Unspecified, serrors.New("unknown decision", "input", s)
}

// Key identifies a record.
type Key struct {
	Fingerprint []byte
	PolicyOID   []byte
}

// String returns a stable textual form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k.Fingerprint) + "/" + hex.EncodeToString(k.PolicyOID)
}

// Record is an explicit trust decision for a (certificate, policy) pair.
type Record struct {
	Version     uint32
	Fingerprint []byte
	PolicyOID   []byte
	Decision    Decision
}

// Key returns the key of the record.
func (r Record) Key() Key {
	return Key{Fingerprint: r.Fingerprint, PolicyOID: r.PolicyOID}
}

// Payload encodes the version and decision of the record.
func (r Record) Payload() []byte {
	b := make([]byte, PayloadLen)
	binary.BigEndian.PutUint32(b[0:4], r.Version)
	binary.BigEndian.PutUint32(b[4:8], uint32(r.Decision))
	return b
}

// DecodePayload decodes a stored payload into a record for key.
func DecodePayload(key Key, raw []byte) (Record, error) {
	if len(raw) != PayloadLen {
		return Record{}, serrors.JoinNoStack(ErrIO, nil,
			"reason", "malformed payload", "key", key, "len", len(raw))
	}
	r := Record{
		Version:     binary.BigEndian.Uint32(raw[0:4]),
		Fingerprint: key.Fingerprint,
		PolicyOID:   key.PolicyOID,
		Decision:    Decision(binary.BigEndian.Uint32(raw[4:8])),
	}
	if r.Version != CurrentVersion {
		return Record{}, serrors.JoinNoStack(ErrVersionMismatch, nil,
			"key", key, "expected", CurrentVersion, "actual", r.Version)
	}
	return r, nil
}

// Fingerprint returns the SHA-256 fingerprint of the certificate.
func Fingerprint(cert *x509.Certificate) []byte {
	sum := sha256.Sum256(cert.Raw)
	return sum[:]
}

// EncodePolicyOID returns the DER encoding of a dotted policy OID.
func EncodePolicyOID(dotted string) ([]byte, error) {
	var oid asn1.ObjectIdentifier
	for _, part := range strings.Split(dotted, ".") {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return nil, serrors.New("invalid policy OID", "oid", dotted)
		}
		oid = append(oid, v)
	}
	if len(oid) < 2 {
		return nil, serrors.New("invalid policy OID", "oid", dotted)
	}
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	raw, err := b.Bytes()
	if err != nil {
		return nil, serrors.Wrap("encoding policy OID", err, "oid", dotted)
	}
	return raw, nil
}

// FormatPolicyOID returns the dotted form of a DER encoded policy OID. Input
// that is not a DER OID is returned in hex.
func FormatPolicyOID(raw []byte) string {
	s := cryptobyte.String(raw)
	var oid asn1.ObjectIdentifier
	if !s.ReadASN1ObjectIdentifier(&oid) || !s.Empty() {
		return hex.EncodeToString(raw)
	}
	return oid.String()
}

// Well-known policies.
var (
	// PolicyBasicX509 is the basic X.509 path validation policy.
	PolicyBasicX509 = mustPolicy("1.2.840.113635.100.1.2")
	// PolicySSL is the TLS server authentication policy.
	PolicySSL = mustPolicy("1.2.840.113635.100.1.3")
	// PolicySMIME is the S/MIME policy.
	PolicySMIME = mustPolicy("1.2.840.113635.100.1.8")
	// PolicyCodeSigning is the code signing policy.
	PolicyCodeSigning = mustPolicy("1.2.840.113635.100.1.16")
)

func mustPolicy(dotted string) []byte {
	raw, err := EncodePolicyOID(dotted)
	if err != nil {
		panic(err)
	}
	return raw
}
