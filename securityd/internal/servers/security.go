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

// Package servers implements the securityd gRPC service.
//
// Policy denials are ordinary responses. Storage and marshaling faults are
// reported with codes.Internal so that clients can tell an unauthorized
// request from a broken subsystem.
package servers

import (
	"context"
	"crypto/x509"
	"errors"
	"sort"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/securityd/securityd/pkg/acl"
	sgrpc "github.com/securityd/securityd/pkg/grpc"
	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/securityd/ipc"
)

// ACLTable holds the named object ACLs of the daemon.
type ACLTable struct {
	mtx  sync.RWMutex
	acls map[string]*acl.ObjectACL
}

// Get returns the ACL with the given name.
func (t *ACLTable) Get(name string) (*acl.ObjectACL, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	a, ok := t.acls[name]
	return a, ok
}

// Set installs a, replacing any ACL with the same name.
func (t *ACLTable) Set(name string, a *acl.ObjectACL) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.acls == nil {
		t.acls = make(map[string]*acl.ObjectACL)
	}
	_, replaced := t.acls[name]
	t.acls[name] = a
	return replaced
}

// Names returns the sorted names of all ACLs.
func (t *ACLTable) Names() []string {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	names := make([]string, 0, len(t.acls))
	for name := range t.acls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Security implements ipc.SecurityServer.
type Security struct {
	ACLs  *ACLTable
	Trust *trust.Store
	// Registry resolves subject kinds. Nil selects acl.DefaultRegistry.
	Registry *acl.Registry
	// ACLMetrics is attached to every installed ACL.
	ACLMetrics *acl.Metrics
	// Path is the protected path offered to subjects. Optional.
	Path acl.ProtectedPath
	// Revocation checks chains for CheckChain. Nil disables the method.
	Revocation *revocation.Checker
}

var _ ipc.SecurityServer = (*Security)(nil)

func (s *Security) registry() *acl.Registry {
	if s.Registry == nil {
		return acl.DefaultRegistry
	}
	return s.Registry
}

func (s *Security) SetACL(ctx context.Context,
	req *ipc.SetACLRequest) (*ipc.SetACLResponse, error) {

	logger := log.FromCtx(ctx)
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "ACL name must not be empty")
	}
	a := &acl.ObjectACL{Metrics: s.ACLMetrics}
	for i, blob := range req.Entries {
		e, err := blob.Entry(s.registry())
		if err != nil {
			logger.Debug("Rejected ACL entry", "acl", req.Name, "index", i, "err", err)
			return nil, status.Errorf(codes.InvalidArgument, "entry %d: %s", i, err)
		}
		if err := a.Add(e); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "entry %d: %s", i, err)
		}
	}
	replaced := s.ACLs.Set(req.Name, a)
	logger.Info("Installed ACL", "acl", req.Name, "entries", a.Len(), "replaced", replaced)
	return &ipc.SetACLResponse{Replaced: replaced}, nil
}

func (s *Security) Evaluate(ctx context.Context,
	req *ipc.EvaluateRequest) (*ipc.EvaluateResponse, error) {

	a, ok := s.ACLs.Get(req.Name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown ACL %q", req.Name)
	}
	actx := &acl.Context{
		Ctx:       ctx,
		Samples:   req.Samples,
		Challenge: req.Challenge,
		Path:      s.Path,
	}
	defer actx.Destroy()
	if cred, ok := sgrpc.PeerCredFromContext(ctx); ok {
		actx.Env = &acl.Environment{UID: cred.UID, GID: cred.GID, PID: int(cred.PID)}
	}
	return &ipc.EvaluateResponse{Decision: a.Evaluate(req.Operation, actx)}, nil
}

func (s *Security) FindTrust(ctx context.Context,
	req *ipc.FindTrustRequest) (*ipc.FindTrustResponse, error) {

	d, err := s.Trust.Find(ctx, req.Fingerprint, req.PolicyOID)
	if err != nil {
		log.FromCtx(ctx).Error("Trust lookup failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &ipc.FindTrustResponse{Decision: d}, nil
}

func (s *Security) AssignTrust(ctx context.Context,
	req *ipc.AssignTrustRequest) (*ipc.AssignTrustResponse, error) {

	err := s.Trust.Assign(ctx, req.Fingerprint, req.PolicyOID, req.Decision)
	switch {
	case err == nil:
		return &ipc.AssignTrustResponse{}, nil
	case errors.Is(err, trust.ErrInvalidRecord):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	default:
		log.FromCtx(ctx).Error("Trust assignment failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
}

func (s *Security) CopyRoots(ctx context.Context,
	req *ipc.CopyRootsRequest) (*ipc.CopyRootsResponse, error) {

	load := s.Trust.CopyRootCertificates
	if req.Refresh {
		load = s.Trust.RefreshRootCertificates
	}
	set, err := load(ctx)
	if err != nil {
		log.FromCtx(ctx).Error("Loading root anchors failed", "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &ipc.CopyRootsResponse{Roots: set.DER()}, nil
}

func (s *Security) CheckChain(ctx context.Context,
	req *ipc.CheckChainRequest) (*ipc.CheckChainResponse, error) {

	if s.Revocation == nil {
		return nil, status.Error(codes.Unimplemented, "revocation checking disabled")
	}
	if len(req.Chain) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty chain")
	}
	chain := make([]*x509.Certificate, 0, len(req.Chain))
	for i, der := range req.Chain {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "certificate %d: %s", i, err)
		}
		chain = append(chain, c)
	}
	res, err := s.Revocation.CheckChain(ctx, chain)
	if err != nil {
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	resp := &ipc.CheckChainResponse{
		Revoked:  res.Revoked,
		Accepted: res.Accepted,
	}
	if res.HasNextUpdate {
		resp.NextUpdate = res.NextUpdate
	}
	for _, rvc := range res.Contexts {
		resp.States = append(resp.States, rvc.State())
	}
	log.FromCtx(ctx).Debug("Checked chain", "length", len(chain),
		"revoked", res.Revoked, "accepted", res.Accepted)
	return resp, nil
}
