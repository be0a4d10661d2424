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

package trust

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
)

// RootAnchorSet is an immutable set of root anchor certificates. It is safe
// to share between goroutines.
type RootAnchorSet struct {
	certs []*x509.Certificate
	index map[[32]byte]struct{}
}

// NewRootAnchorSet creates a set from the certificates. Duplicates are
// removed; the order of first occurrence is kept.
func NewRootAnchorSet(certs []*x509.Certificate) *RootAnchorSet {
	s := &RootAnchorSet{index: make(map[[32]byte]struct{}, len(certs))}
	for _, c := range certs {
		fp := fingerprintArray(c)
		if _, ok := s.index[fp]; ok {
			continue
		}
		s.index[fp] = struct{}{}
		s.certs = append(s.certs, c)
	}
	return s
}

func fingerprintArray(c *x509.Certificate) [32]byte {
	var fp [32]byte
	copy(fp[:], Fingerprint(c))
	return fp
}

// Len returns the number of anchors.
func (s *RootAnchorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.certs)
}

// Certificates returns the anchors. The returned slice is a copy, the
// certificates must not be modified.
func (s *RootAnchorSet) Certificates() []*x509.Certificate {
	if s == nil {
		return nil
	}
	return append([]*x509.Certificate(nil), s.certs...)
}

// DER returns copies of the DER encodings of the anchors.
func (s *RootAnchorSet) DER() [][]byte {
	if s == nil {
		return nil
	}
	r := make([][]byte, 0, len(s.certs))
	for _, c := range s.certs {
		r = append(r, bytes.Clone(c.Raw))
	}
	return r
}

// Contains reports whether cert is one of the anchors.
func (s *RootAnchorSet) Contains(cert *x509.Certificate) bool {
	if s == nil || cert == nil {
		return false
	}
	_, ok := s.index[fingerprintArray(cert)]
	return ok
}

// Pool returns a certificate pool containing the anchors.
func (s *RootAnchorSet) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range s.Certificates() {
		pool.AddCert(c)
	}
	return pool
}

// Equal reports whether both sets contain the same anchors in the same
// order.
func (s *RootAnchorSet) Equal(o *RootAnchorSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i := range s.Certificates() {
		if !s.certs[i].Equal(o.certs[i]) {
			return false
		}
	}
	return true
}

// RootLoader loads root anchors from their source.
type RootLoader interface {
	LoadRoots(ctx context.Context) ([]*x509.Certificate, error)
}

// RootLoaderFunc adapts a function to RootLoader.
type RootLoaderFunc func(ctx context.Context) ([]*x509.Certificate, error)

// LoadRoots calls f.
func (f RootLoaderFunc) LoadRoots(ctx context.Context) ([]*x509.Certificate, error) {
	return f(ctx)
}

// LoadResult indicates which files were loaded and which were ignored.
type LoadResult struct {
	Loaded  []string
	Ignored map[string]error
}

// DirLoader loads root anchors from the *.pem, *.crt and *.der files of a
// directory. Files that do not contain a self-signed CA certificate are
// ignored.
type DirLoader struct {
	Dir string
}

// LoadRoots implements RootLoader.
func (l DirLoader) LoadRoots(ctx context.Context) ([]*x509.Certificate, error) {
	res, certs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger := log.FromCtx(ctx)
	for f, err := range res.Ignored {
		logger.Info("Ignoring root anchor file", "file", f, "reason", err)
	}
	return certs, nil
}

// Load loads all anchors and reports per file results.
func (l DirLoader) Load(ctx context.Context) (LoadResult, []*x509.Certificate, error) {
	if _, err := os.Stat(l.Dir); err != nil {
		return LoadResult{}, nil, serrors.Wrap("stating directory", err, "dir", l.Dir)
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return LoadResult{}, nil, serrors.Wrap("reading directory", err, "dir", l.Dir)
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pem", ".crt", ".der":
			if !e.IsDir() {
				files = append(files, filepath.Join(l.Dir, e.Name()))
			}
		}
	}
	sort.Strings(files)

	res := LoadResult{Ignored: map[string]error{}}
	var certs []*x509.Certificate
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, nil, err
		}
		raw, err := os.ReadFile(f)
		if err != nil {
			return res, nil, serrors.Wrap("reading root anchor", err, "file", f)
		}
		fileCerts, err := parseCerts(raw)
		if err != nil {
			res.Ignored[f] = err
			continue
		}
		var anchors []*x509.Certificate
		for _, c := range fileCerts {
			if err := checkAnchor(c); err != nil {
				res.Ignored[f] = err
				anchors = nil
				break
			}
			anchors = append(anchors, c)
		}
		if anchors == nil {
			continue
		}
		certs = append(certs, anchors...)
		res.Loaded = append(res.Loaded, f)
	}
	return res, certs, nil
}

func parseCerts(raw []byte) ([]*x509.Certificate, error) {
	if !bytes.Contains(raw, []byte("-----BEGIN")) {
		c, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, serrors.Wrap("parsing DER certificate", err)
		}
		return []*x509.Certificate{c}, nil
	}
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, serrors.Wrap("parsing PEM certificate", err)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, serrors.New("no certificate found")
	}
	return certs, nil
}

func checkAnchor(c *x509.Certificate) error {
	if !c.IsCA {
		return serrors.New("not a CA certificate", "subject", c.Subject.String())
	}
	if err := c.CheckSignatureFrom(c); err != nil {
		return serrors.Wrap("not self-signed", err, "subject", c.Subject.String())
	}
	return nil
}
